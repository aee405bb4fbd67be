package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

// unreadKey identifies one participant's counter in one workspace.
type unreadKey struct {
	workspaceID   int64
	participantID uuid.UUID
}

type unreadCounter struct {
	count      int
	lastReadAt time.Time
}

// UnreadTracker derives per-participant unread counts from the event stream.
// It subscribes to the bus and increments the counter of every participant
// other than the event's actor. Counters live in memory only; a restart
// resets them, and they can be rebuilt by replaying events through OnEvent.
type UnreadTracker struct {
	workspaceRepo ports.WorkspaceRepository

	mu       sync.RWMutex
	counters map[unreadKey]*unreadCounter

	// participants caches the (client, freelancer) pair per workspace so the
	// hot path avoids a repository round trip per event. Participant sets are
	// immutable after provisioning.
	partMu       sync.RWMutex
	participants map[int64][2]uuid.UUID

	logger *slog.Logger
}

var _ ports.UnreadTracker = (*UnreadTracker)(nil)

// countedTypes are the event types that contribute to unread counts. Presence
// churn is noise, not content.
var countedTypes = []domain.EventType{
	domain.EventMessage,
	domain.EventFile,
	domain.EventMilestone,
	domain.EventPayment,
	domain.EventMeeting,
	domain.EventNotification,
}

// NewUnreadTracker creates the tracker and wires it onto the bus.
func NewUnreadTracker(bus ports.EventBus, workspaceRepo ports.WorkspaceRepository, logger *slog.Logger) *UnreadTracker {
	t := &UnreadTracker{
		workspaceRepo: workspaceRepo,
		counters:      make(map[unreadKey]*unreadCounter),
		participants:  make(map[int64][2]uuid.UUID),
		logger:        logger.With("component", "unread_tracker"),
	}
	bus.Subscribe(countedTypes, t.OnEvent)
	return t
}

// OnEvent increments the unread counter of every participant except the
// actor. Runs on the hub loop and must stay fast.
func (t *UnreadTracker) OnEvent(event domain.Event) {
	pair, ok := t.resolveParticipants(event.WorkspaceID)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, participantID := range pair {
		if participantID == event.ActorID {
			continue
		}
		key := unreadKey{workspaceID: event.WorkspaceID, participantID: participantID}
		counter := t.counters[key]
		if counter == nil {
			counter = &unreadCounter{}
			t.counters[key] = counter
		}
		if !event.CreatedAt.After(counter.lastReadAt) {
			continue
		}
		counter.count++
	}
}

// UnreadCount returns the participant's unread counter for the workspace.
func (t *UnreadTracker) UnreadCount(workspaceID int64, participantID uuid.UUID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counter := t.counters[unreadKey{workspaceID: workspaceID, participantID: participantID}]
	if counter == nil {
		return 0
	}
	return counter.count
}

// MarkRead resets the participant's counter. Events stamped at or before upTo
// no longer count; an event racing in with a later timestamp still does.
func (t *UnreadTracker) MarkRead(workspaceID int64, participantID uuid.UUID, upTo time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := unreadKey{workspaceID: workspaceID, participantID: participantID}
	counter := t.counters[key]
	if counter == nil {
		counter = &unreadCounter{}
		t.counters[key] = counter
	}
	counter.count = 0
	if upTo.After(counter.lastReadAt) {
		counter.lastReadAt = upTo
	}
}

// resolveParticipants returns the workspace's participant pair, loading it
// once per workspace.
func (t *UnreadTracker) resolveParticipants(workspaceID int64) ([2]uuid.UUID, bool) {
	t.partMu.RLock()
	pair, ok := t.participants[workspaceID]
	t.partMu.RUnlock()
	if ok {
		return pair, true
	}

	workspace, err := t.workspaceRepo.GetByID(context.Background(), workspaceID)
	if err != nil {
		t.logger.Warn("failed to resolve workspace participants",
			"workspace_id", workspaceID,
			"error", err,
		)
		return [2]uuid.UUID{}, false
	}

	pair = [2]uuid.UUID{workspace.ClientID, workspace.FreelancerID}
	t.partMu.Lock()
	t.participants[workspaceID] = pair
	t.partMu.Unlock()
	return pair, true
}
