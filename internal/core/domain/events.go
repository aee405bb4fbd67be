package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of real-time event.
type EventType string

const (
	EventMessage      EventType = "MESSAGE"
	EventFile         EventType = "FILE"
	EventMilestone    EventType = "MILESTONE"
	EventPayment      EventType = "PAYMENT"
	EventMeeting      EventType = "MEETING"
	EventNotification EventType = "NOTIFICATION"
	EventPresence     EventType = "PRESENCE"
)

// MilestoneAction is the subtype carried by MILESTONE events.
type MilestoneAction string

const (
	ActionStarted           MilestoneAction = "started"
	ActionSubmitted         MilestoneAction = "submitted"
	ActionApproved          MilestoneAction = "approved"
	ActionRevisionRequested MilestoneAction = "revision_requested"
	ActionPaid              MilestoneAction = "paid"
)

// PresenceState is the subtype carried by PRESENCE events.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

// Event is the payload sent over WebSocket. Events are transient: the core
// broadcasts them to the room and discards them.
type Event struct {
	Type        EventType   `json:"type"`
	WorkspaceID int64       `json:"workspaceId"` // Used for routing to workspace "rooms"
	ActorID     uuid.UUID   `json:"actorId"`
	Payload     interface{} `json:"payload"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewEvent builds a timestamped event for the given room.
func NewEvent(eventType EventType, workspaceID int64, actorID uuid.UUID, payload interface{}) Event {
	return Event{
		Type:        eventType,
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
}
