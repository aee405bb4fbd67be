package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/mocks"
	"github.com/lorrc/workroom-backend/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type workspaceServiceMocks struct {
	workspaceRepo *mocks.MockWorkspaceRepository
	milestoneRepo *mocks.MockMilestoneRepository
	txManager     *mocks.MockTransactionManager
	bus           *mocks.MockEventBus
	registry      *mocks.MockSessionRegistry
}

func newWorkspaceService() (ports.WorkspaceService, *workspaceServiceMocks) {
	m := &workspaceServiceMocks{
		workspaceRepo: mocks.NewMockWorkspaceRepository(),
		milestoneRepo: mocks.NewMockMilestoneRepository(),
		txManager:     mocks.NewMockTransactionManager(),
		bus:           mocks.NewMockEventBus(),
		registry:      mocks.NewMockSessionRegistry(),
	}
	service := NewWorkspaceService(m.workspaceRepo, m.milestoneRepo, m.txManager, m.bus, m.registry)
	return service, m
}

func TestWorkspaceService_CreateWorkspace(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	t.Run("provisions workspace with milestone batch", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.txManager.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
		m.workspaceRepo.On("Create", mock.Anything, mock.Anything).
			Return(testWorkspace(clientID, freelancerID), nil)
		m.milestoneRepo.On("Create", mock.Anything, mock.MatchedBy(func(ms *domain.Milestone) bool {
			return ms.WorkspaceID == int64(1)
		})).Return(testMilestone(10, 1, domain.MilestonePending), nil).Once()
		m.milestoneRepo.On("Create", mock.Anything, mock.Anything).
			Return(testMilestone(11, 2, domain.MilestonePending), nil).Once()

		detail, err := service.CreateWorkspace(context.Background(), ports.CreateWorkspaceParams{
			Title:        "Logo redesign",
			ClientID:     clientID,
			FreelancerID: freelancerID,
			Milestones: []ports.MilestoneInput{
				{Title: "Concepts", AmountCents: 30000},
				{Title: "Final assets", AmountCents: 70000},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, domain.WorkspaceActive, detail.Workspace.Status)
		assert.Len(t, detail.Milestones, 2)
		assert.Equal(t, 0, detail.Progress)
	})

	t.Run("requires at least one milestone", func(t *testing.T) {
		service, m := newWorkspaceService()

		_, err := service.CreateWorkspace(context.Background(), ports.CreateWorkspaceParams{
			Title:        "Logo redesign",
			ClientID:     clientID,
			FreelancerID: freelancerID,
		})

		require.ErrorIs(t, err, apperrors.ErrPhaseSequenceInvalid)
		m.txManager.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
	})

	t.Run("rejects identical participants", func(t *testing.T) {
		service, m := newWorkspaceService()

		_, err := service.CreateWorkspace(context.Background(), ports.CreateWorkspaceParams{
			Title:        "Logo redesign",
			ClientID:     clientID,
			FreelancerID: clientID,
			Milestones:   []ports.MilestoneInput{{Title: "Concepts", AmountCents: 30000}},
		})

		require.ErrorIs(t, err, apperrors.ErrParticipantsIdentical)
		m.txManager.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
	})

	t.Run("invalid milestone aborts before the transaction", func(t *testing.T) {
		service, m := newWorkspaceService()

		_, err := service.CreateWorkspace(context.Background(), ports.CreateWorkspaceParams{
			Title:        "Logo redesign",
			ClientID:     clientID,
			FreelancerID: freelancerID,
			Milestones: []ports.MilestoneInput{
				{Title: "Concepts", AmountCents: 30000},
				{Title: "", AmountCents: 70000},
			},
		})

		require.ErrorIs(t, err, apperrors.ErrTitleRequired)
		m.workspaceRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestWorkspaceService_GetWorkspace(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	t.Run("participant sees milestones and progress", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)
		m.milestoneRepo.On("ListByWorkspace", mock.Anything, int64(1)).Return([]*domain.Milestone{
			testMilestone(10, 1, domain.MilestoneApproved),
			testMilestone(11, 2, domain.MilestoneInProgress),
		}, nil)

		detail, err := service.GetWorkspace(context.Background(), 1, clientID)

		require.NoError(t, err)
		assert.Equal(t, 50, detail.Progress)
		assert.Len(t, detail.Milestones, 2)
	})

	t.Run("non-participant rejected", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)

		_, err := service.GetWorkspace(context.Background(), 1, uuid.New())

		require.ErrorIs(t, err, apperrors.ErrNotParticipant)
		m.milestoneRepo.AssertNotCalled(t, "ListByWorkspace", mock.Anything, mock.Anything)
	})
}

func TestWorkspaceService_CancelWorkspace(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	t.Run("client cancels an active workspace", func(t *testing.T) {
		service, m := newWorkspaceService()

		workspace := testWorkspace(clientID, freelancerID)
		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(workspace, nil)
		m.workspaceRepo.On("Update", mock.Anything, workspace).Return(workspace, nil)
		m.bus.On("Publish", mock.Anything).Return(nil)

		updated, err := service.CancelWorkspace(context.Background(), 1, clientID)

		require.NoError(t, err)
		assert.Equal(t, domain.WorkspaceCancelled, updated.Status)
	})

	t.Run("freelancer may not cancel", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)

		_, err := service.CancelWorkspace(context.Background(), 1, freelancerID)

		require.ErrorIs(t, err, apperrors.ErrClientOnly)
		m.workspaceRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("completed workspace cannot be cancelled", func(t *testing.T) {
		service, m := newWorkspaceService()

		workspace := testWorkspace(clientID, freelancerID)
		workspace.Status = domain.WorkspaceCompleted
		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(workspace, nil)

		_, err := service.CancelWorkspace(context.Background(), 1, clientID)

		require.ErrorIs(t, err, apperrors.ErrWorkspaceNotActive)
		m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	})
}

func TestWorkspaceService_SendMessage(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	t.Run("participant message broadcast", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)
		m.bus.On("Publish", mock.Anything).Return(nil)

		event, err := service.SendMessage(context.Background(), ports.SendMessageParams{
			WorkspaceID: 1,
			ActorID:     clientID,
			Body:        "how is the draft coming along?",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.EventMessage, event.Type)
		assert.Equal(t, clientID, event.ActorID)
		payload, ok := event.Payload.(domain.MessagePayload)
		require.True(t, ok)
		assert.Equal(t, "how is the draft coming along?", payload.Body)
	})

	t.Run("empty body rejected before authorization", func(t *testing.T) {
		service, m := newWorkspaceService()

		_, err := service.SendMessage(context.Background(), ports.SendMessageParams{
			WorkspaceID: 1,
			ActorID:     clientID,
		})

		require.ErrorIs(t, err, apperrors.ErrMessageBodyRequired)
		m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("non-participant publishes nothing", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)

		_, err := service.SendMessage(context.Background(), ports.SendMessageParams{
			WorkspaceID: 1,
			ActorID:     uuid.New(),
			Body:        "hello",
		})

		require.ErrorIs(t, err, apperrors.ErrNotParticipant)
		m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	})
}

func TestWorkspaceService_SendFileNotice(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	t.Run("file reference required", func(t *testing.T) {
		service, m := newWorkspaceService()

		_, err := service.SendFileNotice(context.Background(), ports.FileNoticeParams{
			WorkspaceID: 1,
			ActorID:     freelancerID,
			FileName:    "draft.pdf",
		})

		require.ErrorIs(t, err, apperrors.ErrFileRefRequired)
		m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("announces the shared file", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)
		m.bus.On("Publish", mock.Anything).Return(nil)

		event, err := service.SendFileNotice(context.Background(), ports.FileNoticeParams{
			WorkspaceID: 1,
			ActorID:     freelancerID,
			FileRef:     "store://abc",
			FileName:    "draft.pdf",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.EventFile, event.Type)
	})
}

func TestWorkspaceService_Meetings(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	t.Run("meeting must be in the future", func(t *testing.T) {
		service, m := newWorkspaceService()

		_, err := service.ScheduleMeeting(context.Background(), ports.ScheduleMeetingParams{
			WorkspaceID: 1,
			ActorID:     clientID,
			Topic:       "kickoff",
			StartsAt:    time.Now().Add(-time.Hour),
		})

		require.ErrorIs(t, err, apperrors.ErrMeetingTimeInvalid)
		m.bus.AssertNotCalled(t, "Publish", mock.Anything)
	})

	t.Run("scheduled meeting carries its start time", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)
		m.bus.On("Publish", mock.Anything).Return(nil)

		startsAt := time.Now().Add(24 * time.Hour)
		event, err := service.ScheduleMeeting(context.Background(), ports.ScheduleMeetingParams{
			WorkspaceID: 1,
			ActorID:     clientID,
			Topic:       "weekly sync",
			StartsAt:    startsAt,
			JoinURL:     "https://meet.example/abc",
		})

		require.NoError(t, err)
		payload, ok := event.Payload.(domain.MeetingPayload)
		require.True(t, ok)
		require.NotNil(t, payload.StartsAt)
		assert.Equal(t, startsAt.UTC(), *payload.StartsAt)
	})

	t.Run("call invite has no start time", func(t *testing.T) {
		service, m := newWorkspaceService()

		m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)
		m.bus.On("Publish", mock.Anything).Return(nil)

		event, err := service.InviteToCall(context.Background(), ports.InviteToCallParams{
			WorkspaceID: 1,
			ActorID:     freelancerID,
			Topic:       "quick question",
			JoinURL:     "https://meet.example/now",
		})

		require.NoError(t, err)
		payload, ok := event.Payload.(domain.MeetingPayload)
		require.True(t, ok)
		assert.Nil(t, payload.StartsAt)
	})
}

func TestWorkspaceService_ActiveParticipants(t *testing.T) {
	clientID := uuid.New()
	freelancerID := uuid.New()

	service, m := newWorkspaceService()

	m.workspaceRepo.On("GetByID", mock.Anything, int64(1)).Return(testWorkspace(clientID, freelancerID), nil)
	m.registry.On("ActiveParticipants", int64(1)).Return([]uuid.UUID{clientID})

	online, err := service.ActiveParticipants(context.Background(), 1, freelancerID)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{clientID}, online)
}
