package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authorization
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotParticipant = errors.New("actor is not a participant of this workspace")
	ErrClientOnly     = errors.New("only the workspace client may perform this action")
	ErrFreelancerOnly = errors.New("only the workspace freelancer may perform this action")

	// Milestone lifecycle
	ErrPhaseLocked       = errors.New("preceding phase is not yet approved")
	ErrInvalidTransition = errors.New("invalid milestone transition")
	ErrFeedbackRequired  = errors.New("revision feedback is required")
	ErrArtifactsRequired = errors.New("at least one artifact reference is required")

	// Workspace validation
	ErrWorkspaceNotFound     = errors.New("workspace not found")
	ErrWorkspaceNotActive    = errors.New("workspace is not active")
	ErrMilestoneNotFound     = errors.New("milestone not found")
	ErrTitleRequired         = errors.New("title is required")
	ErrTitleTooLong          = errors.New("title exceeds maximum length of 255 characters")
	ErrAmountNegative        = errors.New("milestone amount must not be negative")
	ErrPhaseSequenceInvalid  = errors.New("milestone phases must form a contiguous sequence starting at 1")
	ErrParticipantsIdentical = errors.New("client and freelancer must be different participants")

	// Messaging
	ErrMessageBodyRequired = errors.New("message body is required")
	ErrMessageBodyTooLong  = errors.New("message body exceeds maximum length")
	ErrFileRefRequired     = errors.New("file reference is required")
	ErrMeetingTimeInvalid  = errors.New("meeting time must be in the future")

	// Delivery (non-fatal; logged, never propagated to the publisher)
	ErrDeliveryTimeout = errors.New("event delivery timed out for session")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal server error")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrNotParticipant,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewValidationError(err error, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 422,
		Details:    details,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
