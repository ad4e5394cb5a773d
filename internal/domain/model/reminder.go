package model

import "time"

// Window identifies one reminder interval before a scheduled start.
type Window string

const (
	Window24h Window = "24h"
	Window2h  Window = "2h"
)

// Windows lists the tracked reminder windows, long lead first.
var Windows = []Window{Window24h, Window2h}

var windowBounds = map[Window][2]time.Duration{
	Window24h: {23 * time.Hour, 25 * time.Hour},
	Window2h:  {90 * time.Minute, 150 * time.Minute},
}

// Bounds returns the lower and upper lead time of the window.
func (w Window) Bounds() (lower, upper time.Duration) {
	b := windowBounds[w]
	return b[0], b[1]
}

// Contains reports whether a start time lies inside the window as seen from now.
func (w Window) Contains(start, now time.Time) bool {
	lower, upper := w.Bounds()
	if upper == 0 || !start.After(now) {
		return false
	}
	lead := start.Sub(now)
	return lead >= lower && lead <= upper
}

// StartingSoon reports whether a start lies within d from now and is not yet past.
func StartingSoon(start, now time.Time, d time.Duration) bool {
	if start.IsZero() || !start.After(now) {
		return false
	}
	return start.Sub(now) <= d
}
