package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ResourceType string

const (
	ResourceTypeUpcoming ResourceType = "upcoming" // scheduled live class
	ResourceTypeRecorded ResourceType = "recorded"
	ResourceTypeLive     ResourceType = "live"
)

// Item is a separately priced part of a resource, e.g. one video of a course.
type Item struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Type  string          `json:"type,omitempty"`
}

// ReminderFlag is flipped to sent at most once.
type ReminderFlag struct {
	Sent   bool      `json:"sent"`
	SentAt time.Time `json:"sent_at,omitempty"`
}

type Schedule struct {
	StartsAt  time.Time               `json:"starts_at"`
	Reminders map[Window]ReminderFlag `json:"reminders,omitempty"`
}

// Resource is a purchasable course or class.
type Resource struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Type       ResourceType        `json:"type"`
	Price      decimal.Decimal     `json:"price"`
	Items      []Item              `json:"items,omitempty"`
	AccessList []string            `json:"access_list"`
	ItemAccess map[string][]string `json:"item_access,omitempty"`
	Schedule   *Schedule           `json:"schedule,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`

	Version int64 `json:"-"`
}

func (r *Resource) HasAccess(userID string) bool {
	for _, u := range r.AccessList {
		if u == userID {
			return true
		}
	}
	return false
}

func (r *Resource) HasItem(userID, itemID string) bool {
	for _, id := range r.ItemAccess[userID] {
		if id == itemID {
			return true
		}
	}
	return false
}

// AddAccess inserts userID into the access list. Returns false if already present.
func (r *Resource) AddAccess(userID string) bool {
	if r.HasAccess(userID) {
		return false
	}
	r.AccessList = append(r.AccessList, userID)
	return true
}

// AddItemAccess records that userID holds itemID. Returns false if already present.
func (r *Resource) AddItemAccess(userID, itemID string) bool {
	if r.HasItem(userID, itemID) {
		return false
	}
	if r.ItemAccess == nil {
		r.ItemAccess = map[string][]string{}
	}
	r.ItemAccess[userID] = append(r.ItemAccess[userID], itemID)
	return true
}

func (r *Resource) Item(id string) (*Item, bool) {
	for i := range r.Items {
		if r.Items[i].ID == id {
			it := r.Items[i]
			return &it, true
		}
	}
	return nil, false
}

// PriceFor returns the price of the whole resource, or of an item when itemID is set.
func (r *Resource) PriceFor(itemID string) (decimal.Decimal, bool) {
	if itemID == "" {
		return r.Price, true
	}
	it, ok := r.Item(itemID)
	if !ok {
		return decimal.Zero, false
	}
	return it.Price, true
}

func (r *Resource) Scheduled() bool {
	return r.Schedule != nil && !r.Schedule.StartsAt.IsZero()
}

func (r *Resource) ReminderSent(w Window) bool {
	if !r.Scheduled() {
		return false
	}
	return r.Schedule.Reminders[w].Sent
}

// MarkReminderSent sets the window flag. It never clears a flag already set.
func (r *Resource) MarkReminderSent(w Window, at time.Time) bool {
	if !r.Scheduled() || r.ReminderSent(w) {
		return false
	}
	if r.Schedule.Reminders == nil {
		r.Schedule.Reminders = map[Window]ReminderFlag{}
	}
	r.Schedule.Reminders[w] = ReminderFlag{Sent: true, SentAt: at}
	return true
}
