package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/ports"
	"github.com/lorrc/workroom-backend/internal/core/utils"
)

// MilestoneRepository is the secondary adapter for milestone persistence.
type MilestoneRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MilestoneRepository = (*MilestoneRepository)(nil)

// NewMilestoneRepository creates a new milestone repository.
func NewMilestoneRepository(pool *pgxpool.Pool) ports.MilestoneRepository {
	return &MilestoneRepository{pool: pool}
}

const milestoneColumns = `id, workspace_id, phase_number, title, description, amount_cents,
	due_date, status, artifacts, feedback, submitted_at, approved_at,
	payment_status, payment_ref, created_at, updated_at`

func scanMilestone(row pgx.Row) (*domain.Milestone, error) {
	var (
		milestone   domain.Milestone
		description pgtype.Text
		dueDate     pgtype.Timestamptz
		status      string
		feedback    pgtype.Text
		submittedAt pgtype.Timestamptz
		approvedAt  pgtype.Timestamptz
		payment     string
		paymentRef  pgtype.Text
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(&milestone.ID, &milestone.WorkspaceID, &milestone.PhaseNumber,
		&milestone.Title, &description, &milestone.AmountCents, &dueDate, &status,
		&milestone.Artifacts, &feedback, &submittedAt, &approvedAt,
		&payment, &paymentRef, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	milestone.Description = utils.FromString(description)
	milestone.DueDate = utils.FromTimestamptz(dueDate)
	milestone.Status = domain.MilestoneStatus(status)
	milestone.Feedback = utils.FromString(feedback)
	milestone.SubmittedAt = utils.FromTimestamptz(submittedAt)
	milestone.ApprovedAt = utils.FromTimestamptz(approvedAt)
	milestone.Payment = domain.PaymentStatus(payment)
	milestone.PaymentRef = utils.FromString(paymentRef)
	milestone.CreatedAt = createdAt.Time
	milestone.UpdatedAt = utils.FromTimestamptz(updatedAt)
	return &milestone, nil
}

// Create persists a new milestone entity.
func (r *MilestoneRepository) Create(ctx context.Context, milestone *domain.Milestone) (*domain.Milestone, error) {
	query := `
		INSERT INTO milestones (workspace_id, phase_number, title, description,
			amount_cents, due_date, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + milestoneColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		milestone.WorkspaceID,
		milestone.PhaseNumber,
		milestone.Title,
		utils.ToString(milestone.Description),
		milestone.AmountCents,
		utils.ToTimestamptz(milestone.DueDate),
		string(milestone.Status),
		string(milestone.Payment),
	)
	return scanMilestone(row)
}

// GetByID retrieves a single milestone by its ID.
func (r *MilestoneRepository) GetByID(ctx context.Context, id int64) (*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`

	milestone, err := scanMilestone(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMilestoneNotFound
		}
		return nil, err
	}
	return milestone, nil
}

// GetByPhase retrieves the milestone at the given phase of a workspace.
func (r *MilestoneRepository) GetByPhase(ctx context.Context, workspaceID int64, phaseNumber int32) (*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE workspace_id = $1 AND phase_number = $2`

	milestone, err := scanMilestone(GetDBTX(ctx, r.pool).QueryRow(ctx, query, workspaceID, phaseNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMilestoneNotFound
		}
		return nil, err
	}
	return milestone, nil
}

// Update persists changes to an existing milestone entity.
func (r *MilestoneRepository) Update(ctx context.Context, milestone *domain.Milestone) (*domain.Milestone, error) {
	query := `
		UPDATE milestones
		SET status = $2, artifacts = $3, feedback = $4, submitted_at = $5,
			approved_at = $6, payment_status = $7, payment_ref = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + milestoneColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		milestone.ID,
		string(milestone.Status),
		milestone.Artifacts,
		utils.ToString(milestone.Feedback),
		utils.ToTimestamptz(milestone.SubmittedAt),
		utils.ToTimestamptz(milestone.ApprovedAt),
		string(milestone.Payment),
		utils.ToString(milestone.PaymentRef),
		utils.ToTimestamptz(milestone.UpdatedAt),
	)

	updated, err := scanMilestone(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMilestoneNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ListByWorkspace retrieves every milestone of a workspace in phase order.
func (r *MilestoneRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*domain.Milestone, error) {
	query := `
		SELECT ` + milestoneColumns + `
		FROM milestones
		WHERE workspace_id = $1
		ORDER BY phase_number ASC`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*domain.Milestone
	for rows.Next() {
		milestone, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, milestone)
	}
	return milestones, rows.Err()
}
