package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/lorrc/workroom-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/workroom-backend/internal/adapters/primary/validation"
	"github.com/lorrc/workroom-backend/internal/auth"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

const maxMilestonesPerWorkspace = 50

// WorkspaceHandler handles HTTP requests for workspaces and their
// collaboration operations
type WorkspaceHandler struct {
	workspaceService ports.WorkspaceService
	unreadTracker    ports.UnreadTracker
	errorHandler     *ErrorHandler
	logger           *slog.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(
	workspaceService ports.WorkspaceService,
	unreadTracker ports.UnreadTracker,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		unreadTracker:    unreadTracker,
		errorHandler:     errorHandler,
		logger:           logger.With("handler", "workspace"),
	}
}

// RegisterRoutes sets up the routing for all workspace endpoints.
func (h *WorkspaceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListWorkspaces)
	r.Post("/", h.HandleCreateWorkspace)

	// Routes for a specific workspace
	r.Route("/{workspaceID}", func(r chi.Router) {
		r.Get("/", h.HandleGetWorkspace)
		r.Post("/cancel", h.HandleCancelWorkspace)

		r.Post("/messages", h.HandleSendMessage)
		r.Post("/files", h.HandleSendFileNotice)
		r.Post("/meetings", h.HandleScheduleMeeting)
		r.Post("/calls", h.HandleInviteToCall)

		r.Get("/participants/active", h.HandleActiveParticipants)
		r.Get("/unread", h.HandleUnreadCount)
		r.Post("/read", h.HandleMarkRead)
	})
}

// --- Request/Response DTOs ---

// MilestoneInput defines one phase within a workspace creation request.
// Phases are numbered 1..N from array order.
type MilestoneInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AmountCents int64  `json:"amountCents"`
	DueDate     string `json:"dueDate,omitempty"`
}

// CreateWorkspaceRequest defines the expected JSON body for creating a
// workspace. The authenticated caller becomes the client.
type CreateWorkspaceRequest struct {
	Title        string           `json:"title"`
	FreelancerID string           `json:"freelancerId"`
	Milestones   []MilestoneInput `json:"milestones"`
}

// Validate validates the create workspace request
func (r *CreateWorkspaceRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)

	v.Required("freelancerId", r.FreelancerID).
		UUID("freelancerId", r.FreelancerID)

	v.Custom("milestones", len(r.Milestones) >= 1, "At least one milestone is required")
	v.Custom("milestones", len(r.Milestones) <= maxMilestonesPerWorkspace, "Too many milestones")

	for i, m := range r.Milestones {
		field := "milestones[" + strconv.Itoa(i) + "]"
		v.Required(field+".title", m.Title).
			MaxLength(field+".title", m.Title, domain.MaxTitleLength)
		v.MaxLength(field+".description", m.Description, domain.MaxDescriptionLength)
		v.Custom(field+".amountCents", m.AmountCents >= 0, "Must not be negative")
		if m.DueDate != "" {
			_, err := time.Parse(time.RFC3339, m.DueDate)
			v.Custom(field+".dueDate", err == nil, "Must be an RFC 3339 timestamp")
		}
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// SendMessageRequest defines the expected JSON body for a chat message
type SendMessageRequest struct {
	Body string `json:"body"`
}

// Validate validates the send message request
func (r *SendMessageRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxDescriptionLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// FileNoticeRequest defines the expected JSON body for announcing a shared
// file. The reference is an opaque identifier owned by the storage service.
type FileNoticeRequest struct {
	FileRef  string `json:"fileRef"`
	FileName string `json:"fileName"`
}

// Validate validates the file notice request
func (r *FileNoticeRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("fileRef", r.FileRef)
	v.MaxLength("fileName", r.FileName, domain.MaxTitleLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ScheduleMeetingRequest defines the expected JSON body for scheduling a
// meeting
type ScheduleMeetingRequest struct {
	Topic    string `json:"topic"`
	StartsAt string `json:"startsAt"`
	JoinURL  string `json:"joinUrl"`
}

// Validate validates the schedule meeting request
func (r *ScheduleMeetingRequest) Validate() error {
	v := validation.NewValidator()

	v.MaxLength("topic", r.Topic, domain.MaxTitleLength)

	v.Required("startsAt", r.StartsAt)
	if r.StartsAt != "" {
		_, err := time.Parse(time.RFC3339, r.StartsAt)
		v.Custom("startsAt", err == nil, "Must be an RFC 3339 timestamp")
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// InviteToCallRequest defines the expected JSON body for an immediate call
// invite
type InviteToCallRequest struct {
	Topic   string `json:"topic"`
	JoinURL string `json:"joinUrl"`
}

// Validate validates the call invite request
func (r *InviteToCallRequest) Validate() error {
	v := validation.NewValidator()

	v.MaxLength("topic", r.Topic, domain.MaxTitleLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MarkReadRequest defines the optional JSON body for marking a workspace as
// read. When upTo is omitted, the current time is used.
type MarkReadRequest struct {
	UpTo string `json:"upTo,omitempty"`
}

// Validate validates the mark read request
func (r *MarkReadRequest) Validate() error {
	v := validation.NewValidator()

	if r.UpTo != "" {
		_, err := time.Parse(time.RFC3339, r.UpTo)
		v.Custom("upTo", err == nil, "Must be an RFC 3339 timestamp")
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// WorkspaceDTO defines the JSON response for workspaces.
type WorkspaceDTO struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	ClientID     string  `json:"clientId"`
	FreelancerID string  `json:"freelancerId"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    *string `json:"updatedAt"`
}

// WorkspaceDetailDTO bundles a workspace with its milestones and derived
// progress.
type WorkspaceDetailDTO struct {
	WorkspaceDTO
	Milestones []MilestoneDTO `json:"milestones"`
	Progress   int            `json:"progress"`
}

// UnreadCountDTO defines the JSON response for unread counts.
type UnreadCountDTO struct {
	WorkspaceID int64 `json:"workspaceId"`
	Count       int   `json:"count"`
}

// ActiveParticipantsDTO defines the JSON response for presence queries.
type ActiveParticipantsDTO struct {
	WorkspaceID  int64    `json:"workspaceId"`
	Participants []string `json:"participants"`
}

func toWorkspaceDTO(workspace *domain.Workspace) WorkspaceDTO {
	var updatedAt *string
	if workspace.UpdatedAt != nil {
		value := workspace.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	return WorkspaceDTO{
		ID:           workspace.ID,
		Title:        workspace.Title,
		ClientID:     workspace.ClientID.String(),
		FreelancerID: workspace.FreelancerID.String(),
		Status:       string(workspace.Status),
		CreatedAt:    workspace.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    updatedAt,
	}
}

func toWorkspaceDTOs(workspaces []*domain.Workspace) []WorkspaceDTO {
	response := make([]WorkspaceDTO, 0, len(workspaces))
	for _, workspace := range workspaces {
		response = append(response, toWorkspaceDTO(workspace))
	}
	return response
}

func toWorkspaceDetailDTO(detail *ports.WorkspaceDetail) WorkspaceDetailDTO {
	return WorkspaceDetailDTO{
		WorkspaceDTO: toWorkspaceDTO(detail.Workspace),
		Milestones:   toMilestoneDTOs(detail.Milestones),
		Progress:     detail.Progress,
	}
}

// --- Handlers ---

// HandleListWorkspaces handles GET /workspaces
func (h *WorkspaceHandler) HandleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaces, err := h.workspaceService.ListWorkspaces(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toWorkspaceDTOs(workspaces))
}

// HandleCreateWorkspace handles POST /workspaces
func (h *WorkspaceHandler) HandleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateWorkspaceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	freelancerID, err := uuid.Parse(req.FreelancerID)
	if err != nil {
		// This shouldn't happen since we validated the UUID format
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestones := make([]ports.MilestoneInput, 0, len(req.Milestones))
	for _, m := range req.Milestones {
		input := ports.MilestoneInput{
			Title:       m.Title,
			Description: m.Description,
			AmountCents: m.AmountCents,
		}
		if m.DueDate != "" {
			dueDate, parseErr := time.Parse(time.RFC3339, m.DueDate)
			if parseErr != nil {
				h.errorHandler.Handle(w, r, parseErr)
				return
			}
			input.DueDate = &dueDate
		}
		milestones = append(milestones, input)
	}

	params := ports.CreateWorkspaceParams{
		Title:        req.Title,
		ClientID:     claims.UserID,
		FreelancerID: freelancerID,
		Milestones:   milestones,
	}

	detail, err := h.workspaceService.CreateWorkspace(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("workspace created",
		"workspace_id", detail.Workspace.ID,
		"milestone_count", len(detail.Milestones),
		"user_id", claims.UserID,
	)

	WriteCreated(w, toWorkspaceDetailDTO(detail))
}

// HandleGetWorkspace handles GET /workspaces/{workspaceID}
func (h *WorkspaceHandler) HandleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	detail, err := h.workspaceService.GetWorkspace(r.Context(), workspaceID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toWorkspaceDetailDTO(detail))
}

// HandleCancelWorkspace handles POST /workspaces/{workspaceID}/cancel
func (h *WorkspaceHandler) HandleCancelWorkspace(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	workspace, err := h.workspaceService.CancelWorkspace(r.Context(), workspaceID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("workspace cancelled",
		"workspace_id", workspaceID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toWorkspaceDTO(workspace))
}

// HandleSendMessage handles POST /workspaces/{workspaceID}/messages
func (h *WorkspaceHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[SendMessageRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	event, err := h.workspaceService.SendMessage(r.Context(), ports.SendMessageParams{
		WorkspaceID: workspaceID,
		ActorID:     claims.UserID,
		Body:        req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, event)
}

// HandleSendFileNotice handles POST /workspaces/{workspaceID}/files
func (h *WorkspaceHandler) HandleSendFileNotice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[FileNoticeRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	event, err := h.workspaceService.SendFileNotice(r.Context(), ports.FileNoticeParams{
		WorkspaceID: workspaceID,
		ActorID:     claims.UserID,
		FileRef:     req.FileRef,
		FileName:    req.FileName,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, event)
}

// HandleScheduleMeeting handles POST /workspaces/{workspaceID}/meetings
func (h *WorkspaceHandler) HandleScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ScheduleMeetingRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		// This shouldn't happen since we validated the timestamp format
		h.errorHandler.Handle(w, r, err)
		return
	}

	event, err := h.workspaceService.ScheduleMeeting(r.Context(), ports.ScheduleMeetingParams{
		WorkspaceID: workspaceID,
		ActorID:     claims.UserID,
		Topic:       req.Topic,
		StartsAt:    startsAt,
		JoinURL:     req.JoinURL,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("meeting scheduled",
		"workspace_id", workspaceID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusAccepted, event)
}

// HandleInviteToCall handles POST /workspaces/{workspaceID}/calls
func (h *WorkspaceHandler) HandleInviteToCall(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[InviteToCallRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	event, err := h.workspaceService.InviteToCall(r.Context(), ports.InviteToCallParams{
		WorkspaceID: workspaceID,
		ActorID:     claims.UserID,
		Topic:       req.Topic,
		JoinURL:     req.JoinURL,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, event)
}

// HandleActiveParticipants handles GET /workspaces/{workspaceID}/participants/active
func (h *WorkspaceHandler) HandleActiveParticipants(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	participants, err := h.workspaceService.ActiveParticipants(r.Context(), workspaceID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ids := make([]string, 0, len(participants))
	for _, id := range participants {
		ids = append(ids, id.String())
	}

	WriteJSON(w, http.StatusOK, ActiveParticipantsDTO{
		WorkspaceID:  workspaceID,
		Participants: ids,
	})
}

// HandleUnreadCount handles GET /workspaces/{workspaceID}/unread.
// Counters are keyed by the caller's own identity, so a non-participant can
// only ever observe zero.
func (h *WorkspaceHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	count := h.unreadTracker.UnreadCount(workspaceID, claims.UserID)

	WriteJSON(w, http.StatusOK, UnreadCountDTO{
		WorkspaceID: workspaceID,
		Count:       count,
	})
}

// HandleMarkRead handles POST /workspaces/{workspaceID}/read
func (h *WorkspaceHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	workspaceID, err := h.parseWorkspaceID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[MarkReadRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	upTo := time.Now().UTC()
	if req.UpTo != "" {
		parsed, parseErr := time.Parse(time.RFC3339, req.UpTo)
		if parseErr != nil {
			h.errorHandler.Handle(w, r, parseErr)
			return
		}
		upTo = parsed
	}

	h.unreadTracker.MarkRead(workspaceID, claims.UserID, upTo)

	WriteNoContent(w)
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *WorkspaceHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseWorkspaceID extracts and validates the workspace ID from the URL
func (h *WorkspaceHandler) parseWorkspaceID(r *http.Request) (int64, error) {
	workspaceIDStr := chi.URLParam(r, "workspaceID")
	workspaceID, err := strconv.ParseInt(workspaceIDStr, 10, 64)
	if err != nil || workspaceID <= 0 {
		v := validation.NewValidator()
		v.Custom("workspaceID", false, "Invalid workspace ID")
		return 0, v.Errors()
	}
	return workspaceID, nil
}
