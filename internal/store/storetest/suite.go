// Package storetest holds the behavior every store.Store backend must share.
package storetest

import (
	"testing"
	"time"

	"github.com/shoenig/test/must"

	"github.com/vovakirdan/messenger-server/internal/store"
)

// Suite runs the message store contract against a backend. newStore is called
// once per subtest and must return an empty store.
func Suite(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("empty room", func(t *testing.T) {
		s := newStore(t)

		msgs, err := s.ListMessages(t.Context(), "unknown-room")
		must.NoError(t, err)
		must.NotNil(t, msgs)
		must.SliceEmpty(t, msgs)
	})

	t.Run("save assigns identity", func(t *testing.T) {
		s := newStore(t)

		msg := store.Message{ChatID: "r1", Sender: "a", Text: "hi", Time: "10:30"}
		must.NoError(t, s.SaveMessage(t.Context(), &msg))
		must.NotEq(t, "", msg.ID)
		must.False(t, msg.CreatedAt.IsZero())

		msgs, err := s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceLen(t, 1, msgs)
		must.Eq(t, msg.ID, msgs[0].ID)
		must.Eq(t, "a", msgs[0].Sender)
		must.Eq(t, "hi", msgs[0].Text)
		must.Eq(t, "10:30", msgs[0].Time)
		must.True(t, msg.CreatedAt.Equal(msgs[0].CreatedAt))
	})

	t.Run("ordered by creation", func(t *testing.T) {
		s := newStore(t)

		for _, text := range []string{"one", "two", "three"} {
			msg := store.Message{ChatID: "r1", Sender: "a", Text: text}
			must.NoError(t, s.SaveMessage(t.Context(), &msg))
		}

		msgs, err := s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceLen(t, 3, msgs)
		must.Eq(t, "one", msgs[0].Text)
		must.Eq(t, "two", msgs[1].Text)
		must.Eq(t, "three", msgs[2].Text)
		for i := 1; i < len(msgs); i++ {
			must.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
		}
	})

	t.Run("preset createdAt ordering", func(t *testing.T) {
		s := newStore(t)

		noon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		later := store.Message{ChatID: "r1", Sender: "a", Text: "later", CreatedAt: noon}
		earlier := store.Message{ChatID: "r1", Sender: "a", Text: "earlier", CreatedAt: noon.Add(-time.Hour)}
		must.NoError(t, s.SaveMessage(t.Context(), &later))
		must.NoError(t, s.SaveMessage(t.Context(), &earlier))
		must.True(t, later.CreatedAt.Equal(noon))

		msgs, err := s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceLen(t, 2, msgs)
		must.Eq(t, "earlier", msgs[0].Text)
		must.Eq(t, "later", msgs[1].Text)
		must.True(t, msgs[1].CreatedAt.Equal(noon))
	})

	t.Run("rooms are isolated", func(t *testing.T) {
		s := newStore(t)

		a := store.Message{ChatID: "room-a", Sender: "a", Text: "for a"}
		b := store.Message{ChatID: "room-b", Sender: "b", Text: "for b"}
		must.NoError(t, s.SaveMessage(t.Context(), &a))
		must.NoError(t, s.SaveMessage(t.Context(), &b))

		msgs, err := s.ListMessages(t.Context(), "room-b")
		must.NoError(t, err)
		must.SliceLen(t, 1, msgs)
		must.Eq(t, "for b", msgs[0].Text)
	})

	t.Run("list is restartable", func(t *testing.T) {
		s := newStore(t)

		first := store.Message{ChatID: "r1", Sender: "a", Text: "first"}
		must.NoError(t, s.SaveMessage(t.Context(), &first))

		msgs, err := s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceLen(t, 1, msgs)

		second := store.Message{ChatID: "r1", Sender: "a", Text: "second"}
		must.NoError(t, s.SaveMessage(t.Context(), &second))

		msgs, err = s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceLen(t, 2, msgs)
	})

	t.Run("clear room", func(t *testing.T) {
		s := newStore(t)

		for _, room := range []string{"r1", "r1", "r2"} {
			msg := store.Message{ChatID: room, Sender: "a", Text: "x"}
			must.NoError(t, s.SaveMessage(t.Context(), &msg))
		}

		must.NoError(t, s.ClearRoom(t.Context(), "r1"))
		msgs, err := s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceEmpty(t, msgs)

		// clearing again is a no-op
		must.NoError(t, s.ClearRoom(t.Context(), "r1"))
		msgs, err = s.ListMessages(t.Context(), "r1")
		must.NoError(t, err)
		must.SliceEmpty(t, msgs)

		others, err := s.ListMessages(t.Context(), "r2")
		must.NoError(t, err)
		must.SliceLen(t, 1, others)
	})

	t.Run("clear unknown room", func(t *testing.T) {
		s := newStore(t)
		must.NoError(t, s.ClearRoom(t.Context(), "never-used"))
	})
}
