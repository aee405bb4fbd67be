package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/ports"
	"github.com/lorrc/workroom-backend/internal/core/utils"
)

// WorkspaceRepository is the secondary adapter for workspace persistence.
type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.WorkspaceRepository = (*WorkspaceRepository)(nil)

// NewWorkspaceRepository creates a new workspace repository.
func NewWorkspaceRepository(pool *pgxpool.Pool) ports.WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

const workspaceColumns = `id, title, client_id, freelancer_id, status, created_at, updated_at`

func scanWorkspace(row pgx.Row) (*domain.Workspace, error) {
	var (
		workspace    domain.Workspace
		clientID     pgtype.UUID
		freelancerID pgtype.UUID
		status       string
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := row.Scan(&workspace.ID, &workspace.Title, &clientID, &freelancerID,
		&status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	workspace.ClientID = utils.FromUUID(clientID)
	workspace.FreelancerID = utils.FromUUID(freelancerID)
	workspace.Status = domain.WorkspaceStatus(status)
	workspace.CreatedAt = createdAt.Time
	workspace.UpdatedAt = utils.FromTimestamptz(updatedAt)
	return &workspace, nil
}

// Create persists a new workspace entity.
func (r *WorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	query := `
		INSERT INTO workspaces (title, client_id, freelancer_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + workspaceColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		workspace.Title,
		utils.ToUUID(workspace.ClientID),
		utils.ToUUID(workspace.FreelancerID),
		string(workspace.Status),
	)
	return scanWorkspace(row)
}

// GetByID retrieves a single workspace by its ID.
func (r *WorkspaceRepository) GetByID(ctx context.Context, id int64) (*domain.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`

	workspace, err := scanWorkspace(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return workspace, nil
}

// Update persists changes to an existing workspace entity.
func (r *WorkspaceRepository) Update(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	query := `
		UPDATE workspaces
		SET title = $2, status = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + workspaceColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		workspace.ID,
		workspace.Title,
		string(workspace.Status),
		utils.ToTimestamptz(workspace.UpdatedAt),
	)

	updated, err := scanWorkspace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWorkspaceNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ListByParticipant retrieves every workspace the participant belongs to,
// newest first.
func (r *WorkspaceRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*domain.Workspace, error) {
	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, utils.ToUUID(participantID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*domain.Workspace
	for rows.Next() {
		workspace, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, workspace)
	}
	return workspaces, rows.Err()
}
