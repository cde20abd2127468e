// Package realtime fans out change events to live chat connections.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// Broker publishes payloads on named channels and hands out subscriptions
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription delivers the payloads published on one channel until closed.
// Close must be called when the subscriber leaves the channel.
type Subscription interface {
	Events() <-chan []byte
	Close() error
}

// ChatChannel returns the channel carrying message inserts of a board
func ChatChannel(boardID string) string {
	return "messages:" + boardID
}

// Event is a row change as broadcast to subscribers
type Event struct {
	Event  string          `json:"event"`
	Table  string          `json:"table"`
	Filter string          `json:"filter"`
	Record json.RawMessage `json:"record"`
}

// NewMessageInsert encodes the INSERT event for a new chat message
func NewMessageInsert(boardID string, record interface{}) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message record: %w", err)
	}
	return json.Marshal(Event{
		Event:  "INSERT",
		Table:  "message",
		Filter: "board_id=eq." + boardID,
		Record: raw,
	})
}

// DecodeEvent parses a payload received from a Subscription
func DecodeEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode realtime event: %w", err)
	}
	return &ev, nil
}
