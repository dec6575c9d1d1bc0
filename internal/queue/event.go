// Package queue fans user changes out to every instance over RabbitMQ so
// in-process user caches stay coherent across a deployment.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultExchange is the fanout exchange user changes are published to.
const DefaultExchange = "user.changed"

// UserChangedEvent is published after a user row was updated or deleted.
// Origin identifies the publishing process, which already evicted its own
// caches.
type UserChangedEvent struct {
	UserID    uint64    `json:"user_id"`
	Origin    string    `json:"origin"`
	ChangedAt time.Time `json:"changed_at"`
}

func decodeEvent(body []byte) (UserChangedEvent, error) {
	var ev UserChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return UserChangedEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.UserID == 0 {
		return UserChangedEvent{}, fmt.Errorf("event without user_id")
	}
	return ev, nil
}
