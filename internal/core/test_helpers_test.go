package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/messenger-server/internal/store"
	"github.com/vovakirdan/messenger-server/internal/store/memory"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, wait time.Duration) {
	t.Helper()

	select {
	case ev := <-ch:
		if ev != nil {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(wait):
	}
}

// startHub runs a hub on st until the test ends.
func startHub(t *testing.T, st store.MessageStore, opts ...Option) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(st, opts...)
	go hub.Run(ctx)
	return hub
}

// joinAll registers clients and subscribes them to room, returning once the
// hub has applied every join.
func joinAll(t *testing.T, hub *Hub, room string, clients ...*Client) {
	t.Helper()

	for _, c := range clients {
		if err := hub.RegisterClient(c); err != nil {
			t.Fatalf("register %s: %v", c.ID, err)
		}
		if _, err := hub.request(context.Background(), c, &Command{Kind: CommandJoinRoom, Room: room}); err != nil {
			t.Fatalf("join %s: %v", c.ID, err)
		}
	}
}

var errBackend = errors.New("backend unreachable")

// failingStore fails every operation, as an unreachable backend would.
type failingStore struct{}

func (failingStore) SaveMessage(context.Context, *store.Message) error { return errBackend }

func (failingStore) ListMessages(context.Context, string) ([]store.Message, error) {
	return nil, errBackend
}

func (failingStore) ClearRoom(context.Context, string) error { return errBackend }

// gatedStore holds saves for one room until gate is closed.
type gatedStore struct {
	store.MessageStore
	room    string
	gate    chan struct{}
	entered chan struct{}
}

func newGatedStore(room string) *gatedStore {
	return &gatedStore{
		MessageStore: newMemoryStore(),
		room:         room,
		gate:         make(chan struct{}),
		entered:      make(chan struct{}, 1),
	}
}

func (s *gatedStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.ChatID == s.room {
		select {
		case s.entered <- struct{}{}:
		default:
		}
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.MessageStore.SaveMessage(ctx, msg)
}

func newMemoryStore() *memory.MemoryStore {
	return memory.New()
}
