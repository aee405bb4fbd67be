package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/workroom-backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.sendTimeout = 20 * time.Millisecond
	return h
}

// newTestClient builds a session without a real websocket connection; hub
// tests interact with the Send channel directly.
func newTestClient(h *Hub, workspaceID int64, participantID uuid.UUID) *Client {
	return &Client{
		Hub:           h,
		Send:          make(chan domain.Event, 8),
		WorkspaceID:   workspaceID,
		ParticipantID: participantID,
		logger:        h.logger,
	}
}

func receiveEvent(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case event := <-c.Send:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case event := <-c.Send:
		t.Fatalf("unexpected event delivered: %v", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegistry_AddRemove(t *testing.T) {
	r := NewRegistry()
	participantID := uuid.New()
	c1 := &Client{WorkspaceID: 1, ParticipantID: participantID, Send: make(chan domain.Event, 1)}
	c2 := &Client{WorkspaceID: 1, ParticipantID: participantID, Send: make(chan domain.Event, 1)}

	first, already := r.add(c1)
	assert.True(t, first)
	assert.False(t, already)

	// Same connection handle again: idempotent.
	first, already = r.add(c1)
	assert.False(t, first)
	assert.True(t, already)

	// Second device for the same participant.
	first, already = r.add(c2)
	assert.False(t, first)
	assert.False(t, already)

	assert.Equal(t, 2, r.SessionCount())
	assert.Equal(t, []uuid.UUID{participantID}, r.ActiveParticipants(1))
	assert.True(t, r.IsParticipantOnline(1, participantID))

	last, existed := r.remove(c1)
	assert.False(t, last)
	assert.True(t, existed)

	last, existed = r.remove(c2)
	assert.True(t, last)
	assert.True(t, existed)

	// Removing again is a no-op.
	_, existed = r.remove(c2)
	assert.False(t, existed)

	assert.False(t, r.IsParticipantOnline(1, participantID))
	assert.Equal(t, 0, r.RoomCount())
}

func TestHub_JoinIdempotent(t *testing.T) {
	h := newTestHub()
	client := newTestClient(h, 1, uuid.New())

	h.registerClient(client)
	h.registerClient(client)

	event := receiveEvent(t, client)
	require.Equal(t, domain.EventPresence, event.Type)
	payload, ok := event.Payload.(domain.PresencePayload)
	require.True(t, ok)
	assert.Equal(t, domain.PresenceOnline, payload.State)
	assert.Equal(t, client.ParticipantID, payload.ParticipantID)

	// One session, one presence event, not two.
	assert.Equal(t, 1, h.registry.SessionCount())
	assertNoEvent(t, client)
}

func TestHub_SecondDeviceDoesNotRebroadcastPresence(t *testing.T) {
	h := newTestHub()
	participantID := uuid.New()
	first := newTestClient(h, 1, participantID)
	second := newTestClient(h, 1, participantID)

	h.registerClient(first)
	receiveEvent(t, first) // presence online

	h.registerClient(second)
	assertNoEvent(t, first)
}

func TestHub_PublishIsolation(t *testing.T) {
	h := newTestHub()
	inRoomA := newTestClient(h, 1, uuid.New())
	inRoomB := newTestClient(h, 2, uuid.New())

	h.registerClient(inRoomA)
	h.registerClient(inRoomB)
	receiveEvent(t, inRoomA)
	receiveEvent(t, inRoomB)

	h.fanOut(domain.NewEvent(domain.EventMessage, 1, inRoomA.ParticipantID,
		domain.MessagePayload{MessageID: uuid.New(), Body: "hello"}))

	event := receiveEvent(t, inRoomA)
	assert.Equal(t, domain.EventMessage, event.Type)
	assert.Equal(t, int64(1), event.WorkspaceID)

	assertNoEvent(t, inRoomB)
}

func TestHub_PublishOrderPreserved(t *testing.T) {
	h := newTestHub()
	client := newTestClient(h, 1, uuid.New())
	h.registerClient(client)
	receiveEvent(t, client)

	for i := 0; i < 5; i++ {
		h.fanOut(domain.NewEvent(domain.EventMessage, 1, uuid.Nil,
			domain.MessagePayload{Body: string(rune('a' + i))}))
	}

	for i := 0; i < 5; i++ {
		event := receiveEvent(t, client)
		payload := event.Payload.(domain.MessagePayload)
		assert.Equal(t, string(rune('a'+i)), payload.Body)
	}
}

func TestHub_LeaveBroadcastsOffline(t *testing.T) {
	h := newTestHub()
	leaver := newTestClient(h, 1, uuid.New())
	observer := newTestClient(h, 1, uuid.New())

	h.registerClient(leaver)
	h.registerClient(observer)
	receiveEvent(t, leaver)   // own presence online
	receiveEvent(t, leaver)   // observer presence online
	receiveEvent(t, observer) // own presence online

	h.unregisterClient(leaver)

	event := receiveEvent(t, observer)
	require.Equal(t, domain.EventPresence, event.Type)
	payload := event.Payload.(domain.PresencePayload)
	assert.Equal(t, domain.PresenceOffline, payload.State)
	assert.Equal(t, leaver.ParticipantID, payload.ParticipantID)

	// Subsequent publishes no longer reach the departed session.
	h.fanOut(domain.NewEvent(domain.EventMessage, 1, observer.ParticipantID,
		domain.MessagePayload{Body: "still here?"}))
	receiveEvent(t, observer)
	assert.False(t, h.registry.IsParticipantOnline(1, leaver.ParticipantID))
}

func TestHub_OfflineOnlyAfterLastSession(t *testing.T) {
	h := newTestHub()
	participantID := uuid.New()
	laptop := newTestClient(h, 1, participantID)
	phone := newTestClient(h, 1, participantID)
	observer := newTestClient(h, 1, uuid.New())

	h.registerClient(laptop)
	h.registerClient(phone)
	h.registerClient(observer)
	receiveEvent(t, observer) // own presence online

	h.unregisterClient(laptop)
	assertNoEvent(t, observer)

	h.unregisterClient(phone)
	event := receiveEvent(t, observer)
	payload := event.Payload.(domain.PresencePayload)
	assert.Equal(t, domain.PresenceOffline, payload.State)
}

func TestHub_SlowSessionDeliveryDropped(t *testing.T) {
	h := newTestHub()
	slow := newTestClient(h, 1, uuid.New())
	slow.Send = make(chan domain.Event) // no buffer, nobody reading
	healthy := newTestClient(h, 1, uuid.New())

	h.registry.add(slow)
	h.registry.add(healthy)

	done := make(chan struct{})
	go func() {
		h.fanOut(domain.NewEvent(domain.EventMessage, 1, uuid.Nil,
			domain.MessagePayload{Body: "x"}))
		close(done)
	}()

	// The slow session is dropped after the send timeout; the publish still
	// completes and the healthy session still receives the event.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fanOut blocked on slow session")
	}
	event := receiveEvent(t, healthy)
	assert.Equal(t, domain.EventMessage, event.Type)

	// The slow session is still registered; only the delivery was dropped.
	assert.True(t, h.registry.IsParticipantOnline(1, slow.ParticipantID))
}

func TestHub_SubscriberFiltering(t *testing.T) {
	h := newTestHub()

	var milestoneEvents, allEvents []domain.Event
	h.Subscribe([]domain.EventType{domain.EventMilestone}, func(event domain.Event) {
		milestoneEvents = append(milestoneEvents, event)
	})
	h.Subscribe(nil, func(event domain.Event) {
		allEvents = append(allEvents, event)
	})

	message := domain.NewEvent(domain.EventMessage, 1, uuid.Nil, domain.MessagePayload{Body: "hi"})
	milestone := domain.NewEvent(domain.EventMilestone, 1, uuid.Nil, domain.MilestonePayload{MilestoneID: 9})

	h.notifySubscribers(message)
	h.notifySubscribers(milestone)

	require.Len(t, milestoneEvents, 1)
	assert.Equal(t, domain.EventMilestone, milestoneEvents[0].Type)
	assert.Len(t, allEvents, 2)
}

func TestHub_RunLoop(t *testing.T) {
	h := newTestHub()
	go h.Run()
	defer h.Shutdown()

	client := newTestClient(h, 1, uuid.New())
	h.Register <- client
	receiveEvent(t, client) // presence online

	require.NoError(t, h.Publish(domain.NewEvent(domain.EventMessage, 1, client.ParticipantID,
		domain.MessagePayload{Body: "over the loop"})))

	event := receiveEvent(t, client)
	assert.Equal(t, domain.EventMessage, event.Type)

	h.Unregister <- client

	// The hub closes the session's send channel on unregister.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-client.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestHub_PublishToEmptyRoomIsNoOp(t *testing.T) {
	h := newTestHub()
	go h.Run()
	defer h.Shutdown()

	require.NoError(t, h.Publish(domain.NewEvent(domain.EventMessage, 42, uuid.Nil,
		domain.MessagePayload{Body: "nobody home"})))
}
