package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
)

// WorkspaceRepository is the port for workspace persistence.
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error)
	GetByID(ctx context.Context, id int64) (*domain.Workspace, error)
	Update(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*domain.Workspace, error)
}

// MilestoneRepository is the port for milestone persistence. Milestones are
// keyed by (workspaceID, phaseNumber) and never deleted.
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *domain.Milestone) (*domain.Milestone, error)
	GetByID(ctx context.Context, id int64) (*domain.Milestone, error)
	GetByPhase(ctx context.Context, workspaceID int64, phaseNumber int32) (*domain.Milestone, error)
	Update(ctx context.Context, milestone *domain.Milestone) (*domain.Milestone, error)
	ListByWorkspace(ctx context.Context, workspaceID int64) ([]*domain.Milestone, error)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
