package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/messenger-server/internal/store"
)

func TestHubSendBroadcastsToRoomIncludingSender(t *testing.T) {
	st := newMemoryStore()
	fixed := time.Date(2024, 1, 2, 15, 4, 0, 0, time.Local)
	hub := startHub(t, st, WithClock(func() time.Time { return fixed }))

	alice := NewClient("a")
	bob := NewClient("b")
	joinAll(t, hub, "r1", alice, bob)

	alice.Commands <- &Command{
		Kind:    CommandSendMessage,
		Room:    "r1",
		Message: store.Message{Sender: "a", Text: "hi"},
	}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventNewMessage)
		if ev.Message.Text != "hi" || ev.Message.Sender != "a" || ev.Message.ChatID != "r1" {
			t.Fatalf("unexpected message event for %s: %+v", c.ID, ev.Message)
		}
		if ev.Message.Time != "15:04" {
			t.Fatalf("expected default display time 15:04, got %q", ev.Message.Time)
		}
		if ev.Message.ID == "" || ev.Message.CreatedAt.IsZero() {
			t.Fatalf("broadcast message was not the stored record: %+v", ev.Message)
		}
	}

	msgs, err := st.ListMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Fatalf("expected persisted message, got %+v", msgs)
	}
}

func TestHubTypingSkipsSender(t *testing.T) {
	hub := startHub(t, newMemoryStore())

	alice := NewClient("a")
	bob := NewClient("b")
	carol := NewClient("c")
	joinAll(t, hub, "r1", alice, bob)
	joinAll(t, hub, "r2", carol)

	payload := json.RawMessage(`{"chatId":"r1","sender":"alice","isTyping":true}`)
	alice.Commands <- &Command{Kind: CommandTyping, Room: "r1", Payload: payload}

	ev := mustEvent(t, bob.Events, EventUserTyping)
	if string(ev.Payload) != string(payload) {
		t.Fatalf("typing payload not relayed verbatim: %s", ev.Payload)
	}
	mustNoEvent(t, alice.Events, 100*time.Millisecond)
	mustNoEvent(t, carol.Events, 50*time.Millisecond)
}

func TestHubRoomsAreIsolated(t *testing.T) {
	st := newMemoryStore()
	hub := startHub(t, st)

	alice := NewClient("a")
	bob := NewClient("b")
	joinAll(t, hub, "room-a", alice)
	joinAll(t, hub, "room-b", bob)

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "room-a", Message: store.Message{Sender: "a", Text: "secret"}}

	mustEvent(t, alice.Events, EventNewMessage)
	mustNoEvent(t, bob.Events, 100*time.Millisecond)

	msgs, err := st.ListMessages(context.Background(), "room-b")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("room-b should be empty, got %+v", msgs)
	}
}

func TestHubClearRoomNotifiesIssuer(t *testing.T) {
	st := newMemoryStore()
	hub := startHub(t, st)

	for _, text := range []string{"one", "two"} {
		if _, err := hub.PostMessage(context.Background(), store.Message{ChatID: "r1", Sender: "x", Text: text}); err != nil {
			t.Fatalf("post: %v", err)
		}
	}

	alice := NewClient("a")
	bob := NewClient("b")
	joinAll(t, hub, "r1", alice, bob)

	alice.Commands <- &Command{Kind: CommandClearRoom, Room: "r1"}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventChatCleared)
		if ev.Room != "r1" {
			t.Fatalf("unexpected cleared room %q", ev.Room)
		}
	}

	msgs, err := st.ListMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty room after clear, got %d messages", len(msgs))
	}
}

func TestHubJoinTwiceDeliversOnce(t *testing.T) {
	hub := startHub(t, newMemoryStore())

	alice := NewClient("a")
	joinAll(t, hub, "r1", alice)
	joinAll(t, hub, "r1", alice)

	if _, err := hub.PostMessage(context.Background(), store.Message{ChatID: "r1", Sender: "b", Text: "once"}); err != nil {
		t.Fatalf("post: %v", err)
	}

	mustEvent(t, alice.Events, EventNewMessage)
	mustNoEvent(t, alice.Events, 100*time.Millisecond)
}

func TestHubSendFailureNotifiesSenderOnly(t *testing.T) {
	hub := startHub(t, failingStore{})

	alice := NewClient("a")
	bob := NewClient("b")
	joinAll(t, hub, "r1", alice, bob)

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "r1", Message: store.Message{Sender: "a", Text: "lost"}}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeStorage {
		t.Fatalf("expected storage_error, got %+v", ev)
	}
	mustNoEvent(t, bob.Events, 100*time.Millisecond)
}

func TestHubClearFailureNotifiesIssuer(t *testing.T) {
	hub := startHub(t, failingStore{})

	alice := NewClient("a")
	bob := NewClient("b")
	joinAll(t, hub, "r1", alice, bob)

	alice.Commands <- &Command{Kind: CommandClearRoom, Room: "r1"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeStorage {
		t.Fatalf("expected storage_error, got %+v", ev)
	}
	mustNoEvent(t, bob.Events, 100*time.Millisecond)
}

func TestHubPostMessageReturnsStoredRecord(t *testing.T) {
	hub := startHub(t, newMemoryStore())

	bob := NewClient("b")
	joinAll(t, hub, "r1", bob)

	saved, err := hub.PostMessage(context.Background(), store.Message{ChatID: "r1", Sender: "a", Text: "hello", Time: "08:00"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected stored record, got %+v", saved)
	}
	if saved.Time != "08:00" {
		t.Fatalf("client supplied time must be kept, got %q", saved.Time)
	}

	ev := mustEvent(t, bob.Events, EventNewMessage)
	if ev.Message.ID != saved.ID {
		t.Fatalf("broadcast id %q does not match stored id %q", ev.Message.ID, saved.ID)
	}
}

func TestHubPostMessageStorageError(t *testing.T) {
	hub := startHub(t, failingStore{})

	_, err := hub.PostMessage(context.Background(), store.Message{ChatID: "r1", Sender: "a", Text: "x"})
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}

	if err := hub.ClearRoom(context.Background(), "r1"); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error from clear, got %v", err)
	}
}

func TestHubPreservesSubmissionOrder(t *testing.T) {
	st := newMemoryStore()
	hub := startHub(t, st)

	alice := NewClient("a")
	joinAll(t, hub, "r1", alice)

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		alice.Commands <- &Command{Kind: CommandSendMessage, Room: "r1", Message: store.Message{Sender: "a", Text: text}}
	}
	for range texts {
		mustEvent(t, alice.Events, EventNewMessage)
	}

	msgs, err := st.ListMessages(context.Background(), "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != len(texts) {
		t.Fatalf("expected %d messages, got %d", len(texts), len(msgs))
	}
	for i, text := range texts {
		if msgs[i].Text != text {
			t.Fatalf("message %d: expected %q, got %q", i, text, msgs[i].Text)
		}
		if i > 0 && msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Fatalf("creation timestamps went backwards at %d", i)
		}
	}
}

func TestHubSlowSaveDoesNotStallOtherRooms(t *testing.T) {
	st := newGatedStore("slow")
	hub := startHub(t, st)

	alice := NewClient("a")
	bob := NewClient("b")
	carol := NewClient("c")
	dave := NewClient("d")
	joinAll(t, hub, "slow", alice, bob)
	joinAll(t, hub, "fast", carol, dave)

	alice.Commands <- &Command{Kind: CommandSendMessage, Room: "slow", Message: store.Message{Sender: "a", Text: "first"}}
	select {
	case <-st.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("save never reached the store")
	}
	bob.Commands <- &Command{Kind: CommandSendMessage, Room: "slow", Message: store.Message{Sender: "b", Text: "second"}}

	started := time.Now()
	carol.Commands <- &Command{Kind: CommandTyping, Room: "fast", Payload: json.RawMessage(`{"chatId":"fast"}`)}
	mustEvent(t, dave.Events, EventUserTyping)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := hub.PostMessage(ctx, store.Message{ChatID: "fast", Sender: "c", Text: "quick"}); err != nil {
		t.Fatalf("post in other room: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("other room stalled for %s behind a pending save", elapsed)
	}
	mustNoEvent(t, alice.Events, 50*time.Millisecond)

	close(st.gate)

	first := mustEvent(t, alice.Events, EventNewMessage)
	second := mustEvent(t, alice.Events, EventNewMessage)
	if first.Message.Text != "first" || second.Message.Text != "second" {
		t.Fatalf("room order lost: got %q then %q", first.Message.Text, second.Message.Text)
	}
}

func TestHubUnregisterClosesEvents(t *testing.T) {
	hub := startHub(t, newMemoryStore())

	alice := NewClient("a")
	bob := NewClient("b")
	joinAll(t, hub, "r1", alice, bob)

	hub.UnregisterClient(alice)

	select {
	case _, ok := <-alice.Events:
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after unregister")
	}

	// The room keeps working for remaining subscribers.
	if _, err := hub.PostMessage(context.Background(), store.Message{ChatID: "r1", Sender: "b", Text: "still here"}); err != nil {
		t.Fatalf("post: %v", err)
	}
	mustEvent(t, bob.Events, EventNewMessage)
}

func TestHubStoppedRejectsRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(newMemoryStore())
	go hub.Run(ctx)

	alice := NewClient("a")
	if err := hub.RegisterClient(alice); err != nil {
		t.Fatalf("register: %v", err)
	}

	cancel()
	<-hub.stopped

	if _, err := hub.PostMessage(context.Background(), store.Message{ChatID: "r1", Text: "late"}); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("expected ErrHubStopped, got %v", err)
	}

	select {
	case _, ok := <-alice.Events:
		if ok {
			t.Fatal("expected events closed on shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("events not closed on shutdown")
	}

	// Must not block once the hub is gone.
	hub.UnregisterClient(alice)

	if err := hub.RegisterClient(NewClient("late")); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("expected ErrHubStopped on register, got %v", err)
	}
}
