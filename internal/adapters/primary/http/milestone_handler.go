package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/lorrc/workroom-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/workroom-backend/internal/adapters/primary/validation"
	"github.com/lorrc/workroom-backend/internal/auth"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

const maxArtifactsPerSubmission = 20

// MilestoneHandler handles HTTP requests for the milestone lifecycle
type MilestoneHandler struct {
	milestoneService ports.MilestoneService
	errorHandler     *ErrorHandler
	logger           *slog.Logger
}

// NewMilestoneHandler creates a new milestone handler
func NewMilestoneHandler(
	milestoneService ports.MilestoneService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MilestoneHandler {
	return &MilestoneHandler{
		milestoneService: milestoneService,
		errorHandler:     errorHandler,
		logger:           logger.With("handler", "milestone"),
	}
}

// RegisterRoutes sets up the routing for all milestone endpoints.
func (h *MilestoneHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{milestoneID}", func(r chi.Router) {
		r.Get("/", h.HandleGetMilestone)
		r.Post("/start", h.HandleStart)
		r.Post("/submit", h.HandleSubmit)
		r.Post("/approve", h.HandleApprove)
		r.Post("/revisions", h.HandleRequestRevision)
		r.Post("/payments", h.HandleMarkPaid)
	})
}

// --- Request/Response DTOs ---

// SubmitMilestoneRequest defines the expected JSON body for submitting work
type SubmitMilestoneRequest struct {
	Artifacts []string `json:"artifacts"`
	Note      string   `json:"note"`
}

// Validate validates the submit milestone request
func (r *SubmitMilestoneRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("artifacts", len(r.Artifacts) >= 1, "At least one artifact reference is required")
	v.Custom("artifacts", len(r.Artifacts) <= maxArtifactsPerSubmission, "Too many artifact references")
	for i, ref := range r.Artifacts {
		v.Required("artifacts["+strconv.Itoa(i)+"]", ref)
	}

	v.MaxLength("note", r.Note, domain.MaxDescriptionLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ApproveMilestoneRequest defines the expected JSON body for approving a
// submission. The note is optional.
type ApproveMilestoneRequest struct {
	Note string `json:"note"`
}

// Validate validates the approve milestone request
func (r *ApproveMilestoneRequest) Validate() error {
	v := validation.NewValidator()

	v.MaxLength("note", r.Note, domain.MaxDescriptionLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// RequestRevisionRequest defines the expected JSON body for sending a
// submission back for rework
type RequestRevisionRequest struct {
	Feedback string `json:"feedback"`
}

// Validate validates the revision request
func (r *RequestRevisionRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("feedback", r.Feedback).
		MaxLength("feedback", r.Feedback, domain.MaxDescriptionLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MarkPaidRequest defines the expected JSON body for recording a settled
// payment
type MarkPaidRequest struct {
	PaymentRef string `json:"paymentRef"`
}

// Validate validates the mark paid request
func (r *MarkPaidRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("paymentRef", r.PaymentRef).
		MaxLength("paymentRef", r.PaymentRef, domain.MaxTitleLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MilestoneDTO defines the JSON response for milestones.
type MilestoneDTO struct {
	ID            int64    `json:"id"`
	WorkspaceID   int64    `json:"workspaceId"`
	PhaseNumber   int32    `json:"phaseNumber"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	AmountCents   int64    `json:"amountCents"`
	DueDate       *string  `json:"dueDate"`
	Status        string   `json:"status"`
	Artifacts     []string `json:"artifacts"`
	Feedback      string   `json:"feedback,omitempty"`
	SubmittedAt   *string  `json:"submittedAt"`
	ApprovedAt    *string  `json:"approvedAt"`
	PaymentStatus string   `json:"paymentStatus"`
	PaymentRef    string   `json:"paymentRef,omitempty"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     *string  `json:"updatedAt"`
}

func toMilestoneDTO(milestone *domain.Milestone) MilestoneDTO {
	formatTime := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		value := t.Format(time.RFC3339)
		return &value
	}

	artifacts := milestone.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}

	return MilestoneDTO{
		ID:            milestone.ID,
		WorkspaceID:   milestone.WorkspaceID,
		PhaseNumber:   milestone.PhaseNumber,
		Title:         milestone.Title,
		Description:   milestone.Description,
		AmountCents:   milestone.AmountCents,
		DueDate:       formatTime(milestone.DueDate),
		Status:        string(milestone.Status),
		Artifacts:     artifacts,
		Feedback:      milestone.Feedback,
		SubmittedAt:   formatTime(milestone.SubmittedAt),
		ApprovedAt:    formatTime(milestone.ApprovedAt),
		PaymentStatus: string(milestone.Payment),
		PaymentRef:    milestone.PaymentRef,
		CreatedAt:     milestone.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     formatTime(milestone.UpdatedAt),
	}
}

func toMilestoneDTOs(milestones []*domain.Milestone) []MilestoneDTO {
	response := make([]MilestoneDTO, 0, len(milestones))
	for _, milestone := range milestones {
		response = append(response, toMilestoneDTO(milestone))
	}
	return response
}

// --- Handlers ---

// HandleGetMilestone handles GET /milestones/{milestoneID}
func (h *MilestoneHandler) HandleGetMilestone(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	milestoneID, err := h.parseMilestoneID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestone, err := h.milestoneService.GetMilestone(r.Context(), milestoneID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// HandleStart handles POST /milestones/{milestoneID}/start
func (h *MilestoneHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	milestoneID, err := h.parseMilestoneID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestone, err := h.milestoneService.Start(r.Context(), ports.StartMilestoneParams{
		MilestoneID: milestoneID,
		ActorID:     claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("milestone started",
		"milestone_id", milestoneID,
		"workspace_id", milestone.WorkspaceID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// HandleSubmit handles POST /milestones/{milestoneID}/submit
func (h *MilestoneHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	milestoneID, err := h.parseMilestoneID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[SubmitMilestoneRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestone, err := h.milestoneService.Submit(r.Context(), ports.SubmitMilestoneParams{
		MilestoneID: milestoneID,
		ActorID:     claims.UserID,
		Artifacts:   req.Artifacts,
		Note:        req.Note,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("milestone submitted",
		"milestone_id", milestoneID,
		"workspace_id", milestone.WorkspaceID,
		"artifact_count", len(req.Artifacts),
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// HandleApprove handles POST /milestones/{milestoneID}/approve
func (h *MilestoneHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	milestoneID, err := h.parseMilestoneID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ApproveMilestoneRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestone, err := h.milestoneService.Approve(r.Context(), ports.ApproveMilestoneParams{
		MilestoneID: milestoneID,
		ActorID:     claims.UserID,
		Note:        req.Note,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("milestone approved",
		"milestone_id", milestoneID,
		"workspace_id", milestone.WorkspaceID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// HandleRequestRevision handles POST /milestones/{milestoneID}/revisions
func (h *MilestoneHandler) HandleRequestRevision(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	milestoneID, err := h.parseMilestoneID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[RequestRevisionRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestone, err := h.milestoneService.RequestRevision(r.Context(), ports.RequestRevisionParams{
		MilestoneID: milestoneID,
		ActorID:     claims.UserID,
		Feedback:    req.Feedback,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("milestone revision requested",
		"milestone_id", milestoneID,
		"workspace_id", milestone.WorkspaceID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// HandleMarkPaid handles POST /milestones/{milestoneID}/payments
func (h *MilestoneHandler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	milestoneID, err := h.parseMilestoneID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[MarkPaidRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	milestone, err := h.milestoneService.MarkPaid(r.Context(), ports.MarkPaidParams{
		MilestoneID: milestoneID,
		ActorID:     claims.UserID,
		PaymentRef:  req.PaymentRef,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("milestone payment recorded",
		"milestone_id", milestoneID,
		"workspace_id", milestone.WorkspaceID,
		"payment_ref", req.PaymentRef,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *MilestoneHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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

// parseMilestoneID extracts and validates the milestone ID from the URL
func (h *MilestoneHandler) parseMilestoneID(r *http.Request) (int64, error) {
	milestoneIDStr := chi.URLParam(r, "milestoneID")
	milestoneID, err := strconv.ParseInt(milestoneIDStr, 10, 64)
	if err != nil || milestoneID <= 0 {
		v := validation.NewValidator()
		v.Custom("milestoneID", false, "Invalid milestone ID")
		return 0, v.Errors()
	}
	return milestoneID, nil
}
