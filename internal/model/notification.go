package model

import "time"

// Activity is a locally recorded push notification, kept so the user can
// see what other clients changed recently.
type Activity struct {
	// ID is a locally generated unique identifier.
	ID string `json:"id" db:"id"`

	BoardID string    `json:"board_id" db:"board_id"`
	Type    EventType `json:"type" db:"type"`

	// EventTime is the server timestamp carried by the notification.
	EventTime time.Time `json:"event_time" db:"event_time"`

	// ReceivedAt is when this client received the notification.
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
}
