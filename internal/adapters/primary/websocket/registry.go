package websocket

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/ports"
)

// Registry is the authoritative map from (workspaceID, participantID) to the
// set of live connections. Pure bookkeeping; no business rules. The hub owns
// the only mutating reference; everything else reads through
// ports.SessionRegistry.
type Registry struct {
	// rooms maps workspace IDs to participants to their active connections.
	// A single participant can have multiple connections (tabs/devices).
	rooms map[int64]map[uuid.UUID]map[*Client]bool

	mu sync.RWMutex
}

var _ ports.SessionRegistry = (*Registry)(nil)

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]map[uuid.UUID]map[*Client]bool),
	}
}

// add registers a connection. Idempotent per client: adding the same
// connection twice reports alreadyJoined and changes nothing. firstSession is
// true when this is the participant's first live session in the room, which
// is what triggers a presence broadcast.
func (r *Registry) add(client *Client) (firstSession, alreadyJoined bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[client.WorkspaceID]
	if room == nil {
		room = make(map[uuid.UUID]map[*Client]bool)
		r.rooms[client.WorkspaceID] = room
	}

	sessions := room[client.ParticipantID]
	if sessions == nil {
		sessions = make(map[*Client]bool)
		room[client.ParticipantID] = sessions
	}

	if sessions[client] {
		return false, true
	}

	firstSession = len(sessions) == 0
	sessions[client] = true
	return firstSession, false
}

// remove deregisters a connection. lastSession is true when the participant
// has no remaining sessions in the room, which triggers the presence offline
// broadcast. Removing an unknown client is a no-op.
func (r *Registry) remove(client *Client) (lastSession, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[client.WorkspaceID]
	if !ok {
		return false, false
	}
	sessions, ok := room[client.ParticipantID]
	if !ok || !sessions[client] {
		return false, false
	}

	delete(sessions, client)
	if len(sessions) == 0 {
		delete(room, client.ParticipantID)
		lastSession = true
	}
	if len(room) == 0 {
		delete(r.rooms, client.WorkspaceID)
	}
	return lastSession, true
}

// snapshot returns the room's current connections. Publishes capture their
// recipient set through this; a session joining mid-publish sees only
// subsequent events.
func (r *Registry) snapshot(workspaceID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[workspaceID]
	if !ok {
		return nil
	}

	clients := make([]*Client, 0, len(room))
	for _, sessions := range room {
		for client := range sessions {
			clients = append(clients, client)
		}
	}
	return clients
}

// all returns every live connection across rooms, used during shutdown.
func (r *Registry) all() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for _, room := range r.rooms {
		for _, sessions := range room {
			for client := range sessions {
				clients = append(clients, client)
			}
		}
	}
	return clients
}

// ActiveParticipants returns the participants with at least one live session
// in the workspace.
func (r *Registry) ActiveParticipants(workspaceID int64) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[workspaceID]
	if !ok {
		return nil
	}

	participants := make([]uuid.UUID, 0, len(room))
	for participantID := range room {
		participants = append(participants, participantID)
	}
	return participants
}

// IsParticipantOnline checks if a participant has any active session in the
// workspace.
func (r *Registry) IsParticipantOnline(workspaceID int64, participantID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[workspaceID]
	if !ok {
		return false
	}
	return len(room[participantID]) > 0
}

// SessionCount returns the total number of live connections.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, room := range r.rooms {
		for _, sessions := range room {
			count += len(sessions)
		}
	}
	return count
}

// RoomCount returns the number of rooms with at least one live session.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
