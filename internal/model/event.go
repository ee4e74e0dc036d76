package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType identifies the kind of push notification.
type EventType string

const (
	EventBoardUpdated EventType = "board_updated"
	EventCardUpdated  EventType = "card_updated"
)

// PushEvent is a change signal delivered over the push channel. It carries
// no payload; receivers refetch.
type PushEvent struct {
	Type      EventType `json:"type"`
	BoardID   string    `json:"board_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrMalformedEvent is returned by ParsePushEvent for payloads that do not
// have the push event shape.
var ErrMalformedEvent = errors.New("malformed push event")

// ParsePushEvent decodes a raw push message. Unknown event types and
// missing board IDs are reported as ErrMalformedEvent.
func ParsePushEvent(data []byte) (PushEvent, error) {
	var ev PushEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return PushEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch ev.Type {
	case EventBoardUpdated, EventCardUpdated:
	default:
		return PushEvent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
	if ev.BoardID == "" {
		return PushEvent{}, fmt.Errorf("%w: missing board_id", ErrMalformedEvent)
	}
	return ev, nil
}
