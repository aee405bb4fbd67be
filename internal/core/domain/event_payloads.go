package domain

import (
	"time"

	"github.com/google/uuid"
)

// Typed payloads for each event type. Handlers and the unread tracker switch
// on Event.Type; the payload structs keep the wire shape in one place instead
// of stringly-typed maps.

// MessagePayload carries a chat message.
type MessagePayload struct {
	MessageID uuid.UUID `json:"messageId"`
	Body      string    `json:"body"`
}

// FilePayload announces a file shared in the workspace. The reference is an
// opaque identifier owned by the storage collaborator; the core never holds
// bytes.
type FilePayload struct {
	FileRef  string `json:"fileRef"`
	FileName string `json:"fileName"`
}

// MilestonePayload carries a milestone lifecycle change.
type MilestonePayload struct {
	MilestoneID int64           `json:"milestoneId"`
	PhaseNumber int32           `json:"phaseNumber"`
	Action      MilestoneAction `json:"action"`
	Status      MilestoneStatus `json:"status"`
	Payment     PaymentStatus   `json:"paymentStatus"`
	Feedback    string          `json:"feedback,omitempty"`
	Artifacts   []string        `json:"artifacts,omitempty"`
}

// NewMilestonePayload snapshots a milestone for broadcast.
func NewMilestonePayload(m *Milestone, action MilestoneAction) MilestonePayload {
	return MilestonePayload{
		MilestoneID: m.ID,
		PhaseNumber: m.PhaseNumber,
		Action:      action,
		Status:      m.Status,
		Payment:     m.Payment,
		Feedback:    m.Feedback,
		Artifacts:   m.Artifacts,
	}
}

// PaymentPayload announces a settled payment.
type PaymentPayload struct {
	MilestoneID int64  `json:"milestoneId"`
	PhaseNumber int32  `json:"phaseNumber"`
	AmountCents int64  `json:"amountCents"`
	PaymentRef  string `json:"paymentRef"`
}

// MeetingPayload announces a scheduled meeting or an immediate call invite.
// The core only schedules and announces; media transport is external.
type MeetingPayload struct {
	MeetingID uuid.UUID  `json:"meetingId"`
	Topic     string     `json:"topic"`
	StartsAt  *time.Time `json:"startsAt,omitempty"` // nil for an immediate call invite
	JoinURL   string     `json:"joinUrl,omitempty"`
}

// PresencePayload reports a participant going online or offline in the room.
type PresencePayload struct {
	ParticipantID uuid.UUID     `json:"participantId"`
	State         PresenceState `json:"state"`
}

// NotificationPayload carries a derived digest notification.
type NotificationPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
