package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) (ports.WorkspaceRepository, ports.MilestoneRepository) {
	t.Helper()
	if testPool == nil {
		t.Skip("test database not available")
	}
	return NewWorkspaceRepository(testPool), NewMilestoneRepository(testPool)
}

// Helper to create a workspace for repository tests
func createTestWorkspace(t *testing.T, ctx context.Context, workspaceRepo ports.WorkspaceRepository) *domain.Workspace {
	workspace, err := domain.NewWorkspace("Integration test workspace", uuid.New(), uuid.New())
	require.NoError(t, err)

	created, err := workspaceRepo.Create(ctx, workspace)
	require.NoError(t, err)
	return created
}

func TestWorkspaceRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	workspaceRepo, _ := newTestRepos(t)

	clientID := uuid.New()
	freelancerID := uuid.New()
	workspace, err := domain.NewWorkspace("Logo redesign", clientID, freelancerID)
	require.NoError(t, err)

	created, err := workspaceRepo.Create(ctx, workspace)
	require.NoError(t, err, "Failed to create workspace")
	assert.NotZero(t, created.ID)

	found, err := workspaceRepo.GetByID(ctx, created.ID)
	require.NoError(t, err, "Failed to get workspace by ID")

	assert.Equal(t, "Logo redesign", found.Title)
	assert.Equal(t, clientID, found.ClientID)
	assert.Equal(t, freelancerID, found.FreelancerID)
	assert.Equal(t, domain.WorkspaceActive, found.Status)
	assert.NotZero(t, found.CreatedAt)
	assert.Nil(t, found.UpdatedAt)
}

func TestWorkspaceRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	workspaceRepo, _ := newTestRepos(t)

	_, err := workspaceRepo.GetByID(ctx, 999999)
	require.ErrorIs(t, err, apperrors.ErrWorkspaceNotFound)
}

func TestWorkspaceRepository_Update(t *testing.T) {
	ctx := context.Background()
	workspaceRepo, _ := newTestRepos(t)

	workspace := createTestWorkspace(t, ctx, workspaceRepo)

	require.NoError(t, workspace.Cancel())
	updated, err := workspaceRepo.Update(ctx, workspace)
	require.NoError(t, err)

	assert.Equal(t, domain.WorkspaceCancelled, updated.Status)
	assert.NotNil(t, updated.UpdatedAt)

	// The terminal state is retained, not deleted.
	found, err := workspaceRepo.GetByID(ctx, workspace.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkspaceCancelled, found.Status)
}

func TestWorkspaceRepository_ListByParticipant(t *testing.T) {
	ctx := context.Background()
	workspaceRepo, _ := newTestRepos(t)

	clientID := uuid.New()
	freelancerID := uuid.New()
	otherID := uuid.New()

	first, err := domain.NewWorkspace("First contract", clientID, freelancerID)
	require.NoError(t, err)
	_, err = workspaceRepo.Create(ctx, first)
	require.NoError(t, err)

	second, err := domain.NewWorkspace("Second contract", otherID, freelancerID)
	require.NoError(t, err)
	_, err = workspaceRepo.Create(ctx, second)
	require.NoError(t, err)

	// The freelancer sits on both contracts; the client on one.
	byFreelancer, err := workspaceRepo.ListByParticipant(ctx, freelancerID)
	require.NoError(t, err)
	assert.Len(t, byFreelancer, 2)

	byClient, err := workspaceRepo.ListByParticipant(ctx, clientID)
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, "First contract", byClient[0].Title)

	unknown, err := workspaceRepo.ListByParticipant(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, unknown)
}
