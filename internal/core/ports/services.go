package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
)

// EventHandler consumes events delivered through an internal subscription.
type EventHandler func(event domain.Event)

// EventBus is the port for the room-scoped event fan-out. Publish delivers to
// every session currently joined to the event's workspace, preserving publish
// order within that workspace. Delivery is best-effort to live sessions; the
// bus holds no durable log.
type EventBus interface {
	Publish(event domain.Event) error

	// Subscribe registers an in-process consumer for the given event types
	// (all types when empty). Used to wire the unread tracker; not exposed
	// externally.
	Subscribe(eventTypes []domain.EventType, handler EventHandler)
}

// SessionRegistry is the read-side port over live connection bookkeeping.
// It is the source of presence truth.
type SessionRegistry interface {
	ActiveParticipants(workspaceID int64) []uuid.UUID
	IsParticipantOnline(workspaceID int64, participantID uuid.UUID) bool
}

// --- Milestone lifecycle ---

// StartMilestoneParams defines the input for starting a phase.
type StartMilestoneParams struct {
	MilestoneID int64
	ActorID     uuid.UUID
}

// SubmitMilestoneParams defines the input for submitting work on a phase.
type SubmitMilestoneParams struct {
	MilestoneID int64
	ActorID     uuid.UUID
	Artifacts   []string
	Note        string
}

// ApproveMilestoneParams defines the input for approving a submitted phase.
type ApproveMilestoneParams struct {
	MilestoneID int64
	ActorID     uuid.UUID
	Note        string
}

// RequestRevisionParams defines the input for sending a phase back for rework.
type RequestRevisionParams struct {
	MilestoneID int64
	ActorID     uuid.UUID
	Feedback    string
}

// MarkPaidParams defines the input for recording a settled payment. The
// payment collaborator calls this only after funds are confirmed.
type MarkPaidParams struct {
	MilestoneID int64
	ActorID     uuid.UUID
	PaymentRef  string
}

// MilestoneService owns the milestone lifecycle state machine. Transitions on
// one milestone are serialized; operations on different milestones proceed
// concurrently.
type MilestoneService interface {
	Start(ctx context.Context, params StartMilestoneParams) (*domain.Milestone, error)
	Submit(ctx context.Context, params SubmitMilestoneParams) (*domain.Milestone, error)
	Approve(ctx context.Context, params ApproveMilestoneParams) (*domain.Milestone, error)
	RequestRevision(ctx context.Context, params RequestRevisionParams) (*domain.Milestone, error)
	MarkPaid(ctx context.Context, params MarkPaidParams) (*domain.Milestone, error)
	GetMilestone(ctx context.Context, milestoneID int64, viewerID uuid.UUID) (*domain.Milestone, error)
}

// --- Workspace facade ---

// MilestoneInput describes one phase of a workspace being provisioned.
// Phase numbers are assigned 1..N from slice order.
type MilestoneInput struct {
	Title       string
	Description string
	AmountCents int64
	DueDate     *time.Time
}

// CreateWorkspaceParams defines the input for provisioning a workspace with
// its milestone batch.
type CreateWorkspaceParams struct {
	Title        string
	ClientID     uuid.UUID
	FreelancerID uuid.UUID
	Milestones   []MilestoneInput
}

// SendMessageParams defines the input for a chat message.
type SendMessageParams struct {
	WorkspaceID int64
	ActorID     uuid.UUID
	Body        string
}

// FileNoticeParams defines the input for announcing a shared file.
type FileNoticeParams struct {
	WorkspaceID int64
	ActorID     uuid.UUID
	FileRef     string
	FileName    string
}

// ScheduleMeetingParams defines the input for scheduling a meeting.
type ScheduleMeetingParams struct {
	WorkspaceID int64
	ActorID     uuid.UUID
	Topic       string
	StartsAt    time.Time
	JoinURL     string
}

// InviteToCallParams defines the input for an immediate call invite.
type InviteToCallParams struct {
	WorkspaceID int64
	ActorID     uuid.UUID
	Topic       string
	JoinURL     string
}

// WorkspaceDetail bundles a workspace with its milestones and derived
// progress for query responses.
type WorkspaceDetail struct {
	Workspace  *domain.Workspace
	Milestones []*domain.Milestone
	Progress   int
}

// WorkspaceService is the single ingress for external collaborators. Every
// operation validates the actor against the workspace's participant set,
// performs the state mutation if one applies, then publishes the event. If
// validation fails, neither mutation nor publication occurs.
type WorkspaceService interface {
	CreateWorkspace(ctx context.Context, params CreateWorkspaceParams) (*WorkspaceDetail, error)
	GetWorkspace(ctx context.Context, workspaceID int64, viewerID uuid.UUID) (*WorkspaceDetail, error)
	ListWorkspaces(ctx context.Context, participantID uuid.UUID) ([]*domain.Workspace, error)
	CancelWorkspace(ctx context.Context, workspaceID int64, actorID uuid.UUID) (*domain.Workspace, error)

	SendMessage(ctx context.Context, params SendMessageParams) (*domain.Event, error)
	SendFileNotice(ctx context.Context, params FileNoticeParams) (*domain.Event, error)
	ScheduleMeeting(ctx context.Context, params ScheduleMeetingParams) (*domain.Event, error)
	InviteToCall(ctx context.Context, params InviteToCallParams) (*domain.Event, error)

	ActiveParticipants(ctx context.Context, workspaceID int64, viewerID uuid.UUID) ([]uuid.UUID, error)
}

// UnreadTracker derives per-participant unread counts from the event stream.
// It is a pure consumer: restarting it resets counters, which can be rebuilt
// by replaying events.
type UnreadTracker interface {
	UnreadCount(workspaceID int64, participantID uuid.UUID) int
	MarkRead(workspaceID int64, participantID uuid.UUID, upTo time.Time)
}
