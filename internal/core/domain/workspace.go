package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
)

// Field length constants shared with request validation.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// Role identifies a participant's side of the contract.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleFreelancer Role = "FREELANCER"
)

// WorkspaceStatus represents the overall state of a workspace.
type WorkspaceStatus string

const (
	WorkspaceActive    WorkspaceStatus = "ACTIVE"
	WorkspaceCompleted WorkspaceStatus = "COMPLETED"
	WorkspaceCancelled WorkspaceStatus = "CANCELLED"
)

// Workspace is the collaboration context for one client-freelancer contract.
// It is never deleted; terminal states are retained for history.
type Workspace struct {
	ID           int64
	Title        string
	ClientID     uuid.UUID
	FreelancerID uuid.UUID
	Status       WorkspaceStatus
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// NewWorkspace is a factory function to create a valid new workspace.
func NewWorkspace(title string, clientID, freelancerID uuid.UUID) (*Workspace, error) {
	if title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if clientID == freelancerID {
		return nil, apperrors.ErrParticipantsIdentical
	}

	return &Workspace{
		Title:        title,
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Status:       WorkspaceActive,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// RoleOf returns the role the given participant holds in this workspace.
// The second return value is false for non-participants.
func (w *Workspace) RoleOf(participantID uuid.UUID) (Role, bool) {
	switch participantID {
	case w.ClientID:
		return RoleClient, true
	case w.FreelancerID:
		return RoleFreelancer, true
	default:
		return "", false
	}
}

// IsParticipant reports whether the given ID belongs to the workspace.
func (w *Workspace) IsParticipant(participantID uuid.UUID) bool {
	_, ok := w.RoleOf(participantID)
	return ok
}

// Complete marks the workspace as completed once its final phase is approved.
func (w *Workspace) Complete() error {
	if w.Status != WorkspaceActive {
		return apperrors.ErrWorkspaceNotActive
	}
	w.Status = WorkspaceCompleted
	now := time.Now().UTC()
	w.UpdatedAt = &now
	return nil
}

// Cancel archives the workspace. Only active workspaces can be cancelled.
func (w *Workspace) Cancel() error {
	if w.Status != WorkspaceActive {
		return apperrors.ErrWorkspaceNotActive
	}
	w.Status = WorkspaceCancelled
	now := time.Now().UTC()
	w.UpdatedAt = &now
	return nil
}

// Progress derives the completion percentage from the workspace's milestones:
// the share of phases that have reached APPROVED.
func Progress(milestones []*Milestone) int {
	if len(milestones) == 0 {
		return 0
	}
	approved := 0
	for _, m := range milestones {
		if m.Status == MilestoneApproved {
			approved++
		}
	}
	return approved * 100 / len(milestones)
}
