package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	apperrors "github.com/lorrc/workroom-backend/internal/core/errors"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

// defaultSendTimeout bounds how long a publish waits on one session before
// dropping that session's delivery. It never fails the originating command.
const defaultSendTimeout = 250 * time.Millisecond

// subscription is an internal consumer wired via Subscribe.
type subscription struct {
	types   map[domain.EventType]bool // nil means all types
	handler ports.EventHandler
}

// Hub is the room event bus: it fans typed events out to every session
// currently joined to a workspace, in publish order per workspace. The hub
// owns the session registry and is an injectable instance with an explicit
// lifecycle, so tests can spin up isolated hubs.
type Hub struct {
	registry *Registry

	// Broadcast channel for events; the single run loop consuming it is what
	// guarantees per-room total order.
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// subscribers receive every event after room fan-out, in the same order.
	subscribers []subscription
	subMu       sync.RWMutex

	sendTimeout time.Duration
	done        chan struct{}
	stopOnce    sync.Once
	logger      *slog.Logger
}

// Ensure Hub implements the bus port.
var _ ports.EventBus = (*Hub)(nil)

// NewHub creates a new event hub with its own session registry.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		registry:    NewRegistry(),
		broadcast:   make(chan domain.Event, 256),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		sendTimeout: defaultSendTimeout,
		done:        make(chan struct{}),
		logger:      logger.With("component", "hub"),
	}
}

// SetSendTimeout overrides the per-session delivery timeout. Call before Run.
func (h *Hub) SetSendTimeout(d time.Duration) {
	if d > 0 {
		h.sendTimeout = d
	}
}

// Registry exposes the hub's session registry for presence queries.
func (h *Hub) Registry() ports.SessionRegistry {
	return h.registry
}

// SessionCount returns the total number of live connections across rooms.
func (h *Hub) SessionCount() int {
	return h.registry.SessionCount()
}

// RoomCount returns the number of rooms with at least one live session.
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// Publish queues an event for fan-out to the event's workspace room. This
// method implements the ports.EventBus interface. Publishing to a room with
// zero joined sessions is a no-op.
func (h *Hub) Publish(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"workspace_id", event.WorkspaceID,
		)
		return nil
	}
}

// Subscribe registers an in-process consumer for the given event types (all
// types when empty). Handlers run on the hub loop and must not block.
func (h *Hub) Subscribe(eventTypes []domain.EventType, handler ports.EventHandler) {
	sub := subscription{handler: handler}
	if len(eventTypes) > 0 {
		sub.types = make(map[domain.EventType]bool, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = true
		}
	}

	h.subMu.Lock()
	h.subscribers = append(h.subscribers, sub)
	h.subMu.Unlock()
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.fanOut(event)
			h.notifySubscribers(event)

		case <-h.done:
			for _, client := range h.registry.all() {
				h.registry.remove(client)
				client.CloseSend()
			}
			return
		}
	}
}

// Shutdown stops the run loop and closes all live sessions.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// registerClient adds a session and broadcasts presence online for the
// participant's first session in the room. Re-registering the same connection
// is a no-op, so a duplicate join yields one session and one presence event.
func (h *Hub) registerClient(client *Client) {
	firstSession, alreadyJoined := h.registry.add(client)
	if alreadyJoined {
		h.logger.Debug("duplicate join ignored",
			"workspace_id", client.WorkspaceID,
			"participant_id", client.ParticipantID,
		)
		return
	}

	h.logger.Info("session joined",
		"workspace_id", client.WorkspaceID,
		"participant_id", client.ParticipantID,
	)

	if firstSession {
		event := h.presenceEvent(client, domain.PresenceOnline)
		h.fanOut(event)
		h.notifySubscribers(event)
	}
}

// unregisterClient removes a session. A network drop and an explicit leave
// are treated identically: the session is removed immediately, and presence
// offline is broadcast when it was the participant's last session in the room.
func (h *Hub) unregisterClient(client *Client) {
	lastSession, existed := h.registry.remove(client)
	if !existed {
		return
	}

	client.CloseSend()

	h.logger.Info("session left",
		"workspace_id", client.WorkspaceID,
		"participant_id", client.ParticipantID,
	)

	if lastSession {
		event := h.presenceEvent(client, domain.PresenceOffline)
		h.fanOut(event)
		h.notifySubscribers(event)
	}
}

func (h *Hub) presenceEvent(client *Client, state domain.PresenceState) domain.Event {
	return domain.NewEvent(domain.EventPresence, client.WorkspaceID, client.ParticipantID,
		domain.PresencePayload{
			ParticipantID: client.ParticipantID,
			State:         state,
		})
}

// fanOut delivers an event to every session in the room. The recipient set is
// snapshotted at invocation; delivery to each session is independent and
// bounded by the send timeout, after which that session's delivery is dropped
// and logged. Failures never reach the publisher.
func (h *Hub) fanOut(event domain.Event) {
	clients := h.registry.snapshot(event.WorkspaceID)
	if len(clients) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"workspace_id", event.WorkspaceID,
		"session_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			h.deliverSlow(client, event)
		}
	}
}

// deliverSlow gives a session with a full buffer one bounded chance before
// dropping the delivery.
func (h *Hub) deliverSlow(client *Client, event domain.Event) {
	timer := time.NewTimer(h.sendTimeout)
	defer timer.Stop()

	select {
	case client.Send <- event:
	case <-timer.C:
		h.logger.Warn("dropping delivery",
			"error", apperrors.ErrDeliveryTimeout,
			"event_type", event.Type,
			"workspace_id", client.WorkspaceID,
			"participant_id", client.ParticipantID,
		)
	}
}

func (h *Hub) notifySubscribers(event domain.Event) {
	h.subMu.RLock()
	subs := h.subscribers
	h.subMu.RUnlock()

	for _, sub := range subs {
		if sub.types == nil || sub.types[event.Type] {
			sub.handler(event)
		}
	}
}

// ActiveParticipants returns the participants with a live session in the
// workspace. Convenience passthrough to the registry.
func (h *Hub) ActiveParticipants(workspaceID int64) []uuid.UUID {
	return h.registry.ActiveParticipants(workspaceID)
}
