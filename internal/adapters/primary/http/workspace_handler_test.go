package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/workroom-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/workroom-backend/internal/auth"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/mocks"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

func newWorkspaceRouter(t *testing.T) (*chi.Mux, *mocks.MockWorkspaceService, *mocks.MockUnreadTracker, *auth.TokenManager) {
	t.Helper()

	workspaceService := mocks.NewMockWorkspaceService()
	unreadTracker := mocks.NewMockUnreadTracker()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)
	handler := NewWorkspaceHandler(workspaceService, unreadTracker, errorHandler, logger)
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	router := chi.NewRouter()
	router.Use(mw.JWTMiddleware(tokenManager))
	router.Route("/workspaces", handler.RegisterRoutes)

	return router, workspaceService, unreadTracker, tokenManager
}

func authToken(t *testing.T, tokenManager *auth.TokenManager, userID uuid.UUID) string {
	t.Helper()
	token, err := tokenManager.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

func detailFixture(clientID, freelancerID uuid.UUID) *ports.WorkspaceDetail {
	now := time.Now().UTC()
	workspace := &domain.Workspace{
		ID:           7,
		Title:        "Logo redesign",
		ClientID:     clientID,
		FreelancerID: freelancerID,
		Status:       domain.WorkspaceActive,
		CreatedAt:    now,
	}
	milestones := []*domain.Milestone{
		{
			ID:          11,
			WorkspaceID: 7,
			PhaseNumber: 1,
			Title:       "Concepts",
			AmountCents: 50000,
			Status:      domain.MilestoneApproved,
			Payment:     domain.PaymentUnpaid,
			CreatedAt:   now,
		},
		{
			ID:          12,
			WorkspaceID: 7,
			PhaseNumber: 2,
			Title:       "Final assets",
			AmountCents: 75000,
			Status:      domain.MilestonePending,
			Payment:     domain.PaymentUnpaid,
			CreatedAt:   now,
		},
	}
	return &ports.WorkspaceDetail{
		Workspace:  workspace,
		Milestones: milestones,
		Progress:   50,
	}
}

func TestWorkspaceHandler_Create(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	clientID := uuid.New()
	freelancerID := uuid.New()
	detail := detailFixture(clientID, freelancerID)

	workspaceService.On("CreateWorkspace", mock.Anything, mock.MatchedBy(func(params ports.CreateWorkspaceParams) bool {
		return params.Title == "Logo redesign" &&
			params.ClientID == clientID &&
			params.FreelancerID == freelancerID &&
			len(params.Milestones) == 2
	})).Return(detail, nil)

	payload := map[string]any{
		"title":        "Logo redesign",
		"freelancerId": freelancerID.String(),
		"milestones": []map[string]any{
			{"title": "Concepts", "amountCents": 50000},
			{"title": "Final assets", "amountCents": 75000},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, clientID))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var response WorkspaceDetailDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, int64(7), response.ID)
	assert.Equal(t, clientID.String(), response.ClientID)
	assert.Len(t, response.Milestones, 2)
	assert.Equal(t, 50, response.Progress)

	workspaceService.AssertExpectations(t)
}

func TestWorkspaceHandler_Create_MissingMilestones(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	payload := []byte(`{"title":"Logo redesign","freelancerId":"` + uuid.NewString() + `","milestones":[]}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

	workspaceService.AssertNotCalled(t, "CreateWorkspace", mock.Anything, mock.Anything)
}

func TestWorkspaceHandler_Create_Unauthenticated(t *testing.T) {
	router, _, _, _ := newWorkspaceRouter(t)

	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces", bytes.NewReader([]byte(`{}`)))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func TestWorkspaceHandler_Get(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	clientID := uuid.New()
	detail := detailFixture(clientID, uuid.New())
	workspaceService.On("GetWorkspace", mock.Anything, int64(7), clientID).Return(detail, nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/workspaces/7", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, clientID))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response WorkspaceDetailDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "Logo redesign", response.Title)
	assert.Equal(t, "APPROVED", response.Milestones[0].Status)
	assert.Equal(t, 50, response.Progress)
}

func TestWorkspaceHandler_Get_NotFound(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	viewerID := uuid.New()
	workspaceService.On("GetWorkspace", mock.Anything, int64(99), viewerID).
		Return(nil, apperrors.ErrWorkspaceNotFound)

	req := httptest.NewRequest(stdhttp.MethodGet, "/workspaces/99", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, viewerID))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusNotFound, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "WORKSPACE_NOT_FOUND", response.Code)
}

func TestWorkspaceHandler_Cancel_Forbidden(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	freelancerID := uuid.New()
	workspaceService.On("CancelWorkspace", mock.Anything, int64(7), freelancerID).
		Return(nil, apperrors.ErrClientOnly)

	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces/7/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, freelancerID))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusForbidden, recorder.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "CLIENT_ONLY", response.Code)
}

func TestWorkspaceHandler_SendMessage(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	actorID := uuid.New()
	event := domain.NewEvent(domain.EventMessage, 7, actorID, domain.MessagePayload{
		MessageID: uuid.New(),
		Body:      "hello there",
	})
	workspaceService.On("SendMessage", mock.Anything, ports.SendMessageParams{
		WorkspaceID: 7,
		ActorID:     actorID,
		Body:        "hello there",
	}).Return(&event, nil)

	payload := []byte(`{"body":"hello there"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces/7/messages", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, actorID))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusAccepted, recorder.Code)

	var response domain.Event
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, domain.EventMessage, response.Type)
	assert.Equal(t, int64(7), response.WorkspaceID)
}

func TestWorkspaceHandler_SendMessage_EmptyBody(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	payload := []byte(`{"body":""}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces/7/messages", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

	workspaceService.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestWorkspaceHandler_ScheduleMeeting(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	actorID := uuid.New()
	startsAt := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	event := domain.NewEvent(domain.EventMeeting, 7, actorID, domain.MeetingPayload{
		MeetingID: uuid.New(),
		Topic:     "Kickoff",
		StartsAt:  &startsAt,
	})
	workspaceService.On("ScheduleMeeting", mock.Anything, mock.MatchedBy(func(params ports.ScheduleMeetingParams) bool {
		return params.WorkspaceID == 7 && params.Topic == "Kickoff" && params.StartsAt.Equal(startsAt)
	})).Return(&event, nil)

	payload := []byte(`{"topic":"Kickoff","startsAt":"` + startsAt.Format(time.RFC3339) + `"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces/7/meetings", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, actorID))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusAccepted, recorder.Code)

	workspaceService.AssertExpectations(t)
}

func TestWorkspaceHandler_ScheduleMeeting_BadTimestamp(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	payload := []byte(`{"topic":"Kickoff","startsAt":"tomorrow"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces/7/meetings", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, uuid.New()))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

	workspaceService.AssertNotCalled(t, "ScheduleMeeting", mock.Anything, mock.Anything)
}

func TestWorkspaceHandler_ActiveParticipants(t *testing.T) {
	router, workspaceService, _, tokenManager := newWorkspaceRouter(t)

	viewerID := uuid.New()
	otherID := uuid.New()
	workspaceService.On("ActiveParticipants", mock.Anything, int64(7), viewerID).
		Return([]uuid.UUID{viewerID, otherID}, nil)

	req := httptest.NewRequest(stdhttp.MethodGet, "/workspaces/7/participants/active", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, viewerID))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response ActiveParticipantsDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, int64(7), response.WorkspaceID)
	assert.ElementsMatch(t, []string{viewerID.String(), otherID.String()}, response.Participants)
}

func TestWorkspaceHandler_UnreadCount(t *testing.T) {
	router, _, unreadTracker, tokenManager := newWorkspaceRouter(t)

	viewerID := uuid.New()
	unreadTracker.On("UnreadCount", int64(7), viewerID).Return(3)

	req := httptest.NewRequest(stdhttp.MethodGet, "/workspaces/7/unread", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, viewerID))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response UnreadCountDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, 3, response.Count)
}

func TestWorkspaceHandler_MarkRead(t *testing.T) {
	router, _, unreadTracker, tokenManager := newWorkspaceRouter(t)

	viewerID := uuid.New()
	upTo := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
	unreadTracker.On("MarkRead", int64(7), viewerID, upTo)

	payload := []byte(`{"upTo":"` + upTo.Format(time.RFC3339) + `"}`)
	req := httptest.NewRequest(stdhttp.MethodPost, "/workspaces/7/read", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, viewerID))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusNoContent, recorder.Code)

	unreadTracker.AssertExpectations(t)
}

func TestWorkspaceHandler_InvalidWorkspaceID(t *testing.T) {
	router, _, _, tokenManager := newWorkspaceRouter(t)

	req := httptest.NewRequest(stdhttp.MethodGet, "/workspaces/abc", nil)
	req.Header.Set("Authorization", "Bearer "+authToken(t, tokenManager, uuid.New()))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
}
