package domain

import (
	"time"

	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
)

// MilestoneStatus represents the lifecycle state of a milestone. This is the
// single canonical enum; wire formats and display labels map onto these tags.
type MilestoneStatus string

const (
	MilestonePending           MilestoneStatus = "PENDING"
	MilestoneInProgress        MilestoneStatus = "IN_PROGRESS"
	MilestoneSubmitted         MilestoneStatus = "SUBMITTED"
	MilestoneRevisionRequested MilestoneStatus = "REVISION_REQUESTED"
	MilestoneApproved          MilestoneStatus = "APPROVED"
)

// PaymentStatus is orthogonal to the lifecycle status: approval may precede
// payment, and PAID requires APPROVED.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// validTransitions is the complete edge set of the milestone state machine.
// APPROVED is terminal; payment does not change the lifecycle status.
var validTransitions = map[MilestoneStatus][]MilestoneStatus{
	MilestonePending:           {MilestoneInProgress},
	MilestoneInProgress:        {MilestoneSubmitted},
	MilestoneSubmitted:         {MilestoneApproved, MilestoneRevisionRequested},
	MilestoneRevisionRequested: {MilestoneSubmitted},
	MilestoneApproved:          {},
}

// ParseMilestoneStatus maps a wire string to the canonical status tag.
func ParseMilestoneStatus(s string) (MilestoneStatus, bool) {
	status := MilestoneStatus(s)
	if _, ok := validTransitions[status]; ok {
		return status, true
	}
	return "", false
}

// Milestone is one sequentially-ordered deliverable unit within a workspace.
// Phase numbers are contiguous starting at 1; phase N+1 cannot leave PENDING
// until phase N is approved. Mutated only through the methods below.
type Milestone struct {
	ID          int64
	WorkspaceID int64
	PhaseNumber int32
	Title       string
	Description string
	AmountCents int64
	DueDate     *time.Time
	Status      MilestoneStatus
	Artifacts   []string // opaque file references resolved by the storage collaborator
	Feedback    string
	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	Payment     PaymentStatus
	PaymentRef  string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// MilestoneParams bundles the input for creating a milestone.
type MilestoneParams struct {
	WorkspaceID int64
	PhaseNumber int32
	Title       string
	Description string
	AmountCents int64
	DueDate     *time.Time
}

// NewMilestone is a factory function to create a valid new milestone.
func NewMilestone(params MilestoneParams) (*Milestone, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if params.AmountCents < 0 {
		return nil, apperrors.ErrAmountNegative
	}
	if params.PhaseNumber < 1 {
		return nil, apperrors.ErrPhaseSequenceInvalid
	}

	return &Milestone{
		WorkspaceID: params.WorkspaceID,
		PhaseNumber: params.PhaseNumber,
		Title:       params.Title,
		Description: params.Description,
		AmountCents: params.AmountCents,
		DueDate:     params.DueDate,
		Status:      MilestonePending,
		Payment:     PaymentUnpaid,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// transition moves the milestone to the target status if the edge exists.
func (m *Milestone) transition(target MilestoneStatus) error {
	allowed, ok := validTransitions[m.Status]
	if !ok {
		return apperrors.ErrInvalidTransition
	}
	for _, s := range allowed {
		if s == target {
			m.Status = target
			now := time.Now().UTC()
			m.UpdatedAt = &now
			return nil
		}
	}
	return apperrors.ErrInvalidTransition
}

// Start moves the milestone from PENDING to IN_PROGRESS. Phase gating against
// the preceding milestone is enforced by the service, which sees both records.
func (m *Milestone) Start() error {
	return m.transition(MilestoneInProgress)
}

// Submit records the delivered artifacts and moves the milestone to SUBMITTED.
// Valid from IN_PROGRESS and from REVISION_REQUESTED (resubmission).
func (m *Milestone) Submit(artifacts []string, note string) error {
	if len(artifacts) == 0 {
		return apperrors.ErrArtifactsRequired
	}
	if err := m.transition(MilestoneSubmitted); err != nil {
		return err
	}
	m.Artifacts = artifacts
	m.Feedback = note
	now := time.Now().UTC()
	m.SubmittedAt = &now
	return nil
}

// Approve moves the milestone from SUBMITTED to APPROVED and records the
// approval timestamp, unlocking the next phase.
func (m *Milestone) Approve(note string) error {
	if err := m.transition(MilestoneApproved); err != nil {
		return err
	}
	if note != "" {
		m.Feedback = note
	}
	now := time.Now().UTC()
	m.ApprovedAt = &now
	return nil
}

// RequestRevision moves the milestone from SUBMITTED back to
// REVISION_REQUESTED. Feedback is mandatory and validated before any mutation.
func (m *Milestone) RequestRevision(feedback string) error {
	if feedback == "" {
		return apperrors.ErrFeedbackRequired
	}
	if err := m.transition(MilestoneRevisionRequested); err != nil {
		return err
	}
	m.Feedback = feedback
	return nil
}

// MarkPaid records payment settlement. The lifecycle status must already be
// APPROVED; the status itself does not change.
func (m *Milestone) MarkPaid(paymentRef string) error {
	if m.Status != MilestoneApproved {
		return apperrors.ErrInvalidTransition
	}
	m.Payment = PaymentPaid
	m.PaymentRef = paymentRef
	now := time.Now().UTC()
	m.UpdatedAt = &now
	return nil
}

// UnlocksNextPhase reports whether this milestone's state permits the next
// phase to start. Approval alone unlocks; payment is not required.
func (m *Milestone) UnlocksNextPhase() bool {
	return m.Status == MilestoneApproved
}
