package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/store"
)

func TestOpenStoreSelection(t *testing.T) {
	logger := zerolog.Nop()
	unreachable := "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200"

	cases := []struct {
		name string
		cfg  func(*config.Config)
		want string
	}{
		{"nothing configured", func(*config.Config) {}, backendMemory},
		{"database path", func(c *config.Config) { c.DatabasePath = filepath.Join(t.TempDir(), "chat.db") }, backendSQLite},
		{"unreachable mongo falls back to sqlite", func(c *config.Config) {
			c.MongoURI = unreachable
			c.DatabasePath = filepath.Join(t.TempDir(), "chat.db")
		}, backendSQLite},
		{"unreachable mongo falls back to memory", func(c *config.Config) { c.MongoURI = unreachable }, backendMemory},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.StorageTimeout = time.Second
			tc.cfg(&cfg)

			st, backend, err := openStore(context.Background(), &cfg, &logger)
			if err != nil {
				t.Fatalf("open store: %v", err)
			}
			defer st.Close()

			if backend != tc.want {
				t.Fatalf("expected %s backend, got %s", tc.want, backend)
			}

			ctx := context.Background()
			if err := st.SaveMessage(ctx, &store.Message{ChatID: "r1", Sender: "a", Text: "hi"}); err != nil {
				t.Fatalf("save: %v", err)
			}
			msgs, err := st.ListMessages(ctx, "r1")
			if err != nil || len(msgs) != 1 {
				t.Fatalf("list: %v %v", msgs, err)
			}
		})
	}
}

func TestNewAndRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, &cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}
