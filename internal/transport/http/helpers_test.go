package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/metrics"
	"github.com/vovakirdan/messenger-server/internal/store"
	"github.com/vovakirdan/messenger-server/internal/store/memory"
)

var errBackend = errors.New("backend unavailable")

// failingStore rejects every call.
type failingStore struct{}

func (failingStore) SaveMessage(context.Context, *store.Message) error { return errBackend }

func (failingStore) ListMessages(context.Context, string) ([]store.Message, error) {
	return nil, errBackend
}

func (failingStore) ClearRoom(context.Context, string) error { return errBackend }

// startTestServer runs a hub and the full router on an httptest server.
func startTestServer(t *testing.T, st store.MessageStore, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	if st == nil {
		st = memory.New()
	}

	cfg := config.Default()
	cfg.ReadHeaderTimeout = time.Second
	cfg.StorageTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.Nop()
	m := metrics.New()
	hub := core.NewHub(st, core.WithLogger(&logger), core.WithMetrics(m), core.WithStorageTimeout(cfg.StorageTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, st, &cfg, &logger, m)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return ts
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}
