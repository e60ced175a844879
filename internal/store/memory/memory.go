package memory

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/vovakirdan/messenger-server/internal/store"
)

var _ store.Store = (*MemoryStore)(nil)

// MemoryStore keeps messages in process memory.
// Contents are lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []store.Message
	seq      int64
	clock    *store.Clock
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return NewWithClock(nil)
}

// NewWithClock creates an empty in-memory store that stamps messages using now.
func NewWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{clock: store.NewClock(now)}
}

// SaveMessage appends a message to the store.
func (s *MemoryStore) SaveMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	msg.ID = strconv.FormatInt(s.seq, 10)
	s.clock.Assign(msg)
	s.messages = append(s.messages, *msg)
	return nil
}

// ListMessages returns a copy of the room's messages ordered by CreatedAt,
// insertion order breaking ties.
func (s *MemoryStore) ListMessages(_ context.Context, chatID string) ([]store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Message, 0)
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b store.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// ClearRoom drops every message of the room.
func (s *MemoryStore) ClearRoom(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = slices.DeleteFunc(s.messages, func(m store.Message) bool {
		return m.ChatID == chatID
	})
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
