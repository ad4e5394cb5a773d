package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

type NotificationKind string

const (
	NotificationPurchaseConfirmed     NotificationKind = "purchase_confirmation"
	NotificationRegistrationConfirmed NotificationKind = "registration_confirmation"
	NotificationStartingSoon          NotificationKind = "starting_soon"
	NotificationReminder24h           NotificationKind = "reminder_24h"
	NotificationReminder2h            NotificationKind = "reminder_2h"
)

// ReminderKind maps a reminder window to its notification kind.
func ReminderKind(w Window) NotificationKind {
	if w == Window2h {
		return NotificationReminder2h
	}
	return NotificationReminder24h
}

// Message is a rendered e-mail ready for the provider.
type Message struct {
	ID      string
	Kind    NotificationKind
	To      string
	Subject string
	HTML    string
	Created time.Time
}

func NewMessage(kind NotificationKind, to, subject, html string) *Message {
	now := time.Now()
	return &Message{
		ID:      ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Kind:    kind,
		To:      to,
		Subject: subject,
		HTML:    html,
		Created: now,
	}
}
