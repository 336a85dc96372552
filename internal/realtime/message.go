package realtime

import (
	"fmt"

	"github.com/google/uuid"
)

type Event string

const (
	EventActivity            Event = "recommend_event"
	EventRequestStatusChange Event = "recommend_request_status"
)

// EventsChannel carries every recorded activity event.
const EventsChannel = "recommend.events"

// Message is one realtime notification. Data must be JSON encodable.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// UserChannel is the per-recipient channel name.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s", userID)
}
