package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

// milestoneLocks serializes transitions per milestone ID. Operations on
// different milestones proceed independently; the loser of a concurrent pair
// on the same milestone observes the committed state and gets
// ErrInvalidTransition from the domain check.
type milestoneLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newMilestoneLocks() *milestoneLocks {
	return &milestoneLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *milestoneLocks) forID(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}

// MilestoneService implements the milestone lifecycle state machine. It is
// the only writer of milestone records; every successful transition both
// persists the milestone and publishes a MILESTONE event to the workspace
// room.
type MilestoneService struct {
	workspaceRepo ports.WorkspaceRepository
	milestoneRepo ports.MilestoneRepository
	bus           ports.EventBus
	locks         *milestoneLocks
	logger        *slog.Logger
}

var _ ports.MilestoneService = (*MilestoneService)(nil)

// NewMilestoneService creates a new milestone service.
func NewMilestoneService(
	workspaceRepo ports.WorkspaceRepository,
	milestoneRepo ports.MilestoneRepository,
	bus ports.EventBus,
	logger *slog.Logger,
) ports.MilestoneService {
	return &MilestoneService{
		workspaceRepo: workspaceRepo,
		milestoneRepo: milestoneRepo,
		bus:           bus,
		locks:         newMilestoneLocks(),
		logger:        logger.With("service", "milestone"),
	}
}

// loadForActor fetches the milestone and its workspace and resolves the
// actor's role. Non-participants get ErrNotParticipant before any state is
// touched.
func (s *MilestoneService) loadForActor(ctx context.Context, milestoneID int64, actorID uuid.UUID) (*domain.Milestone, *domain.Workspace, domain.Role, error) {
	milestone, err := s.milestoneRepo.GetByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, "", err
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, milestone.WorkspaceID)
	if err != nil {
		return nil, nil, "", err
	}

	role, ok := workspace.RoleOf(actorID)
	if !ok {
		return nil, nil, "", apperrors.ErrNotParticipant
	}
	return milestone, workspace, role, nil
}

// checkPhaseGate enforces that a phase may only begin once its predecessor is
// approved. Phase 1 is never gated.
func (s *MilestoneService) checkPhaseGate(ctx context.Context, milestone *domain.Milestone) error {
	if milestone.PhaseNumber <= 1 {
		return nil
	}

	previous, err := s.milestoneRepo.GetByPhase(ctx, milestone.WorkspaceID, milestone.PhaseNumber-1)
	if err != nil {
		return err
	}
	if !previous.UnlocksNextPhase() {
		return apperrors.ErrPhaseLocked
	}
	return nil
}

// commit persists the mutated milestone and publishes the transition event.
// Publication is synchronous so that per-workspace event order matches commit
// order.
func (s *MilestoneService) commit(ctx context.Context, milestone *domain.Milestone, actorID uuid.UUID, action domain.MilestoneAction) (*domain.Milestone, error) {
	updated, err := s.milestoneRepo.Update(ctx, milestone)
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventMilestone, updated.WorkspaceID, actorID,
		domain.NewMilestonePayload(updated, action))
	_ = s.bus.Publish(event)

	return updated, nil
}

// Start moves a milestone from PENDING to IN_PROGRESS. Only the assigned
// freelancer may start a phase, and only once the preceding phase is
// approved.
func (s *MilestoneService) Start(ctx context.Context, params ports.StartMilestoneParams) (*domain.Milestone, error) {
	lock := s.locks.forID(params.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	milestone, workspace, role, err := s.loadForActor(ctx, params.MilestoneID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleFreelancer {
		return nil, apperrors.ErrFreelancerOnly
	}
	if workspace.Status != domain.WorkspaceActive {
		return nil, apperrors.ErrWorkspaceNotActive
	}

	if err := s.checkPhaseGate(ctx, milestone); err != nil {
		return nil, err
	}
	if err := milestone.Start(); err != nil {
		return nil, err
	}

	return s.commit(ctx, milestone, params.ActorID, domain.ActionStarted)
}

// Submit records delivered artifacts and moves the milestone to SUBMITTED.
// Only the assigned freelancer may submit.
func (s *MilestoneService) Submit(ctx context.Context, params ports.SubmitMilestoneParams) (*domain.Milestone, error) {
	lock := s.locks.forID(params.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	milestone, workspace, role, err := s.loadForActor(ctx, params.MilestoneID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleFreelancer {
		return nil, apperrors.ErrFreelancerOnly
	}
	if workspace.Status != domain.WorkspaceActive {
		return nil, apperrors.ErrWorkspaceNotActive
	}

	if err := milestone.Submit(params.Artifacts, params.Note); err != nil {
		return nil, err
	}

	return s.commit(ctx, milestone, params.ActorID, domain.ActionSubmitted)
}

// Approve moves a submitted milestone to APPROVED, which unlocks the next
// phase. Only the assigned client may approve. Approving the final phase
// completes the workspace.
func (s *MilestoneService) Approve(ctx context.Context, params ports.ApproveMilestoneParams) (*domain.Milestone, error) {
	lock := s.locks.forID(params.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	milestone, workspace, role, err := s.loadForActor(ctx, params.MilestoneID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleClient {
		return nil, apperrors.ErrClientOnly
	}

	if err := milestone.Approve(params.Note); err != nil {
		return nil, err
	}

	updated, err := s.commit(ctx, milestone, params.ActorID, domain.ActionApproved)
	if err != nil {
		return nil, err
	}

	s.completeWorkspaceIfDone(ctx, workspace, params.ActorID)

	return updated, nil
}

// completeWorkspaceIfDone flips the workspace to COMPLETED once every phase
// is approved. A failure here is logged and does not undo the approval.
func (s *MilestoneService) completeWorkspaceIfDone(ctx context.Context, workspace *domain.Workspace, actorID uuid.UUID) {
	milestones, err := s.milestoneRepo.ListByWorkspace(ctx, workspace.ID)
	if err != nil {
		s.logger.Error("failed to list milestones for workspace completion",
			"workspace_id", workspace.ID,
			"error", err,
		)
		return
	}
	if domain.Progress(milestones) != 100 {
		return
	}
	if err := workspace.Complete(); err != nil {
		// Already COMPLETED or CANCELLED by a concurrent actor.
		s.logger.Warn("workspace not completable after final approval",
			"workspace_id", workspace.ID,
			"status", workspace.Status,
			"error", err,
		)
		return
	}
	if _, err := s.workspaceRepo.Update(ctx, workspace); err != nil {
		s.logger.Error("failed to persist workspace completion",
			"workspace_id", workspace.ID,
			"error", err,
		)
		return
	}

	event := domain.NewEvent(domain.EventNotification, workspace.ID, actorID,
		domain.NotificationPayload{
			Subject: "Workspace completed",
			Body:    "All milestones have been approved.",
		})
	_ = s.bus.Publish(event)
}

// RequestRevision moves a submitted milestone back to REVISION_REQUESTED.
// Only the assigned client may request changes, and feedback is mandatory.
func (s *MilestoneService) RequestRevision(ctx context.Context, params ports.RequestRevisionParams) (*domain.Milestone, error) {
	lock := s.locks.forID(params.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	milestone, _, role, err := s.loadForActor(ctx, params.MilestoneID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleClient {
		return nil, apperrors.ErrClientOnly
	}

	if err := milestone.RequestRevision(params.Feedback); err != nil {
		return nil, err
	}

	return s.commit(ctx, milestone, params.ActorID, domain.ActionRevisionRequested)
}

// MarkPaid records settlement of an approved milestone. The external payment
// collaborator calls this on the client's behalf only after funds are
// confirmed; a PAYMENT event follows the milestone event.
func (s *MilestoneService) MarkPaid(ctx context.Context, params ports.MarkPaidParams) (*domain.Milestone, error) {
	lock := s.locks.forID(params.MilestoneID)
	lock.Lock()
	defer lock.Unlock()

	milestone, _, role, err := s.loadForActor(ctx, params.MilestoneID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleClient {
		return nil, apperrors.ErrClientOnly
	}

	if err := milestone.MarkPaid(params.PaymentRef); err != nil {
		return nil, err
	}

	updated, err := s.commit(ctx, milestone, params.ActorID, domain.ActionPaid)
	if err != nil {
		return nil, err
	}

	paymentEvent := domain.NewEvent(domain.EventPayment, updated.WorkspaceID, params.ActorID,
		domain.PaymentPayload{
			MilestoneID: updated.ID,
			PhaseNumber: updated.PhaseNumber,
			AmountCents: updated.AmountCents,
			PaymentRef:  updated.PaymentRef,
		})
	_ = s.bus.Publish(paymentEvent)

	return updated, nil
}

// GetMilestone retrieves a milestone for a workspace participant.
func (s *MilestoneService) GetMilestone(ctx context.Context, milestoneID int64, viewerID uuid.UUID) (*domain.Milestone, error) {
	milestone, _, _, err := s.loadForActor(ctx, milestoneID, viewerID)
	if err != nil {
		return nil, err
	}
	return milestone, nil
}
