package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

// WorkspaceService is the single ingress for external collaborators. Every
// operation resolves the actor's role in the workspace before touching state;
// a failed check leaves no partial effects and publishes nothing.
type WorkspaceService struct {
	workspaceRepo ports.WorkspaceRepository
	milestoneRepo ports.MilestoneRepository
	txManager     ports.TransactionManager
	bus           ports.EventBus
	registry      ports.SessionRegistry
}

var _ ports.WorkspaceService = (*WorkspaceService)(nil)

// NewWorkspaceService creates a new workspace facade service.
func NewWorkspaceService(
	workspaceRepo ports.WorkspaceRepository,
	milestoneRepo ports.MilestoneRepository,
	txManager ports.TransactionManager,
	bus ports.EventBus,
	registry ports.SessionRegistry,
) ports.WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		milestoneRepo: milestoneRepo,
		txManager:     txManager,
		bus:           bus,
		registry:      registry,
	}
}

// CreateWorkspace provisions a workspace together with its milestone batch in
// one transaction. Phase numbers are assigned 1..N from the input order.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, params ports.CreateWorkspaceParams) (*ports.WorkspaceDetail, error) {
	workspace, err := domain.NewWorkspace(params.Title, params.ClientID, params.FreelancerID)
	if err != nil {
		return nil, err
	}
	if len(params.Milestones) == 0 {
		return nil, apperrors.ErrPhaseSequenceInvalid
	}

	// Validate the whole batch before opening the transaction.
	pending := make([]*domain.Milestone, 0, len(params.Milestones))
	for i, input := range params.Milestones {
		milestone, err := domain.NewMilestone(domain.MilestoneParams{
			PhaseNumber: int32(i + 1),
			Title:       input.Title,
			Description: input.Description,
			AmountCents: input.AmountCents,
			DueDate:     input.DueDate,
		})
		if err != nil {
			return nil, err
		}
		pending = append(pending, milestone)
	}

	var created *domain.Workspace
	createdMilestones := make([]*domain.Milestone, 0, len(pending))
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		created, err = s.workspaceRepo.Create(txCtx, workspace)
		if err != nil {
			return err
		}
		for _, milestone := range pending {
			milestone.WorkspaceID = created.ID
			saved, err := s.milestoneRepo.Create(txCtx, milestone)
			if err != nil {
				return err
			}
			createdMilestones = append(createdMilestones, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ports.WorkspaceDetail{
		Workspace:  created,
		Milestones: createdMilestones,
		Progress:   domain.Progress(createdMilestones),
	}, nil
}

// GetWorkspace returns the workspace with its milestones and derived progress.
// Only participants may view a workspace.
func (s *WorkspaceService) GetWorkspace(ctx context.Context, workspaceID int64, viewerID uuid.UUID) (*ports.WorkspaceDetail, error) {
	workspace, err := s.authorize(ctx, workspaceID, viewerID)
	if err != nil {
		return nil, err
	}

	milestones, err := s.milestoneRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	return &ports.WorkspaceDetail{
		Workspace:  workspace,
		Milestones: milestones,
		Progress:   domain.Progress(milestones),
	}, nil
}

// ListWorkspaces returns every workspace the participant belongs to, on
// either side of the contract.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, participantID uuid.UUID) ([]*domain.Workspace, error) {
	return s.workspaceRepo.ListByParticipant(ctx, participantID)
}

// CancelWorkspace archives an active workspace. Only the client may cancel.
// The record is retained; nothing is deleted.
func (s *WorkspaceService) CancelWorkspace(ctx context.Context, workspaceID int64, actorID uuid.UUID) (*domain.Workspace, error) {
	workspace, err := s.authorize(ctx, workspaceID, actorID)
	if err != nil {
		return nil, err
	}
	if role, _ := workspace.RoleOf(actorID); role != domain.RoleClient {
		return nil, apperrors.ErrClientOnly
	}

	if err := workspace.Cancel(); err != nil {
		return nil, err
	}

	updated, err := s.workspaceRepo.Update(ctx, workspace)
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventNotification, workspaceID, actorID,
		domain.NotificationPayload{
			Subject: "Workspace cancelled",
			Body:    "The workspace has been cancelled by the client.",
		})
	_ = s.bus.Publish(event)

	return updated, nil
}

// SendMessage validates and broadcasts a chat message to the workspace room.
func (s *WorkspaceService) SendMessage(ctx context.Context, params ports.SendMessageParams) (*domain.Event, error) {
	if params.Body == "" {
		return nil, apperrors.ErrMessageBodyRequired
	}
	if len(params.Body) > domain.MaxDescriptionLength {
		return nil, apperrors.ErrMessageBodyTooLong
	}

	if _, err := s.authorize(ctx, params.WorkspaceID, params.ActorID); err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventMessage, params.WorkspaceID, params.ActorID,
		domain.MessagePayload{
			MessageID: uuid.New(),
			Body:      params.Body,
		})
	if err := s.bus.Publish(event); err != nil {
		return nil, err
	}
	return &event, nil
}

// SendFileNotice announces a file shared in the workspace. The reference is
// opaque; the storage collaborator owns the bytes.
func (s *WorkspaceService) SendFileNotice(ctx context.Context, params ports.FileNoticeParams) (*domain.Event, error) {
	if params.FileRef == "" {
		return nil, apperrors.ErrFileRefRequired
	}

	if _, err := s.authorize(ctx, params.WorkspaceID, params.ActorID); err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventFile, params.WorkspaceID, params.ActorID,
		domain.FilePayload{
			FileRef:  params.FileRef,
			FileName: params.FileName,
		})
	if err := s.bus.Publish(event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ScheduleMeeting announces a meeting set for a future time.
func (s *WorkspaceService) ScheduleMeeting(ctx context.Context, params ports.ScheduleMeetingParams) (*domain.Event, error) {
	if !params.StartsAt.After(time.Now()) {
		return nil, apperrors.ErrMeetingTimeInvalid
	}

	if _, err := s.authorize(ctx, params.WorkspaceID, params.ActorID); err != nil {
		return nil, err
	}

	startsAt := params.StartsAt.UTC()
	event := domain.NewEvent(domain.EventMeeting, params.WorkspaceID, params.ActorID,
		domain.MeetingPayload{
			MeetingID: uuid.New(),
			Topic:     params.Topic,
			StartsAt:  &startsAt,
			JoinURL:   params.JoinURL,
		})
	if err := s.bus.Publish(event); err != nil {
		return nil, err
	}
	return &event, nil
}

// InviteToCall announces an immediate call invite. No start time is carried;
// the invite is only meaningful to sessions that are live when it arrives.
func (s *WorkspaceService) InviteToCall(ctx context.Context, params ports.InviteToCallParams) (*domain.Event, error) {
	if _, err := s.authorize(ctx, params.WorkspaceID, params.ActorID); err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventMeeting, params.WorkspaceID, params.ActorID,
		domain.MeetingPayload{
			MeetingID: uuid.New(),
			Topic:     params.Topic,
			JoinURL:   params.JoinURL,
		})
	if err := s.bus.Publish(event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ActiveParticipants returns the participants currently connected to the
// workspace room. Only participants may ask.
func (s *WorkspaceService) ActiveParticipants(ctx context.Context, workspaceID int64, viewerID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.authorize(ctx, workspaceID, viewerID); err != nil {
		return nil, err
	}
	return s.registry.ActiveParticipants(workspaceID), nil
}

// authorize fetches the workspace and verifies the actor is a participant.
func (s *WorkspaceService) authorize(ctx context.Context, workspaceID int64, actorID uuid.UUID) (*domain.Workspace, error) {
	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !workspace.IsParticipant(actorID) {
		return nil, apperrors.ErrNotParticipant
	}
	return workspace, nil
}
