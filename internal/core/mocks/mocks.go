package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	"github.com/lorrc/workroom-backend/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockWorkspaceRepository is a mock implementation of ports.WorkspaceRepository
type MockWorkspaceRepository struct {
	mock.Mock
}

func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{}
}

func (m *MockWorkspaceRepository) Create(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	args := m.Called(ctx, workspace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetByID(ctx context.Context, id int64) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) Update(ctx context.Context, workspace *domain.Workspace) (*domain.Workspace, error) {
	args := m.Called(ctx, workspace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]*domain.Workspace, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workspace), args.Error(1)
}

// MockMilestoneRepository is a mock implementation of ports.MilestoneRepository
type MockMilestoneRepository struct {
	mock.Mock
}

func NewMockMilestoneRepository() *MockMilestoneRepository {
	return &MockMilestoneRepository{}
}

func (m *MockMilestoneRepository) Create(ctx context.Context, milestone *domain.Milestone) (*domain.Milestone, error) {
	args := m.Called(ctx, milestone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) GetByID(ctx context.Context, id int64) (*domain.Milestone, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) GetByPhase(ctx context.Context, workspaceID int64, phaseNumber int32) (*domain.Milestone, error) {
	args := m.Called(ctx, workspaceID, phaseNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) Update(ctx context.Context, milestone *domain.Milestone) (*domain.Milestone, error) {
	args := m.Called(ctx, milestone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneRepository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]*domain.Milestone, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Milestone), args.Error(1)
}

// MockTransactionManager is a mock implementation of ports.TransactionManager.
// By default it runs the callback with the given context.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{}
}

func (m *MockEventBus) Publish(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventTypes []domain.EventType, handler ports.EventHandler) {
	m.Called(eventTypes, handler)
}

// MockSessionRegistry is a mock implementation of ports.SessionRegistry
type MockSessionRegistry struct {
	mock.Mock
}

func NewMockSessionRegistry() *MockSessionRegistry {
	return &MockSessionRegistry{}
}

func (m *MockSessionRegistry) ActiveParticipants(workspaceID int64) []uuid.UUID {
	args := m.Called(workspaceID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]uuid.UUID)
}

func (m *MockSessionRegistry) IsParticipantOnline(workspaceID int64, participantID uuid.UUID) bool {
	args := m.Called(workspaceID, participantID)
	return args.Bool(0)
}

// MockMilestoneService is a mock implementation of ports.MilestoneService
type MockMilestoneService struct {
	mock.Mock
}

func NewMockMilestoneService() *MockMilestoneService {
	return &MockMilestoneService{}
}

func (m *MockMilestoneService) Start(ctx context.Context, params ports.StartMilestoneParams) (*domain.Milestone, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneService) Submit(ctx context.Context, params ports.SubmitMilestoneParams) (*domain.Milestone, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneService) Approve(ctx context.Context, params ports.ApproveMilestoneParams) (*domain.Milestone, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneService) RequestRevision(ctx context.Context, params ports.RequestRevisionParams) (*domain.Milestone, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneService) MarkPaid(ctx context.Context, params ports.MarkPaidParams) (*domain.Milestone, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

func (m *MockMilestoneService) GetMilestone(ctx context.Context, milestoneID int64, viewerID uuid.UUID) (*domain.Milestone, error) {
	args := m.Called(ctx, milestoneID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Milestone), args.Error(1)
}

// MockWorkspaceService is a mock implementation of ports.WorkspaceService
type MockWorkspaceService struct {
	mock.Mock
}

func NewMockWorkspaceService() *MockWorkspaceService {
	return &MockWorkspaceService{}
}

func (m *MockWorkspaceService) CreateWorkspace(ctx context.Context, params ports.CreateWorkspaceParams) (*ports.WorkspaceDetail, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.WorkspaceDetail), args.Error(1)
}

func (m *MockWorkspaceService) GetWorkspace(ctx context.Context, workspaceID int64, viewerID uuid.UUID) (*ports.WorkspaceDetail, error) {
	args := m.Called(ctx, workspaceID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.WorkspaceDetail), args.Error(1)
}

func (m *MockWorkspaceService) ListWorkspaces(ctx context.Context, participantID uuid.UUID) ([]*domain.Workspace, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceService) CancelWorkspace(ctx context.Context, workspaceID int64, actorID uuid.UUID) (*domain.Workspace, error) {
	args := m.Called(ctx, workspaceID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceService) SendMessage(ctx context.Context, params ports.SendMessageParams) (*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockWorkspaceService) SendFileNotice(ctx context.Context, params ports.FileNoticeParams) (*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockWorkspaceService) ScheduleMeeting(ctx context.Context, params ports.ScheduleMeetingParams) (*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockWorkspaceService) InviteToCall(ctx context.Context, params ports.InviteToCallParams) (*domain.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockWorkspaceService) ActiveParticipants(ctx context.Context, workspaceID int64, viewerID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, workspaceID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockUnreadTracker is a mock implementation of ports.UnreadTracker
type MockUnreadTracker struct {
	mock.Mock
}

func NewMockUnreadTracker() *MockUnreadTracker {
	return &MockUnreadTracker{}
}

func (m *MockUnreadTracker) UnreadCount(workspaceID int64, participantID uuid.UUID) int {
	args := m.Called(workspaceID, participantID)
	return args.Int(0)
}

func (m *MockUnreadTracker) MarkRead(workspaceID int64, participantID uuid.UUID, upTo time.Time) {
	m.Called(workspaceID, participantID, upTo)
}
