package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/metrics"
	"github.com/vovakirdan/messenger-server/internal/store"
)

// ErrHubStopped is returned by request/response calls once Run has returned.
var ErrHubStopped = errors.New("hub stopped")

var errClientGone = errors.New("client unregistered")

const defaultStorageTimeout = 5 * time.Second

// Hub owns room membership and turns client commands into storage calls and
// room broadcasts. All state is confined to the goroutine running Run.
// Storage calls run on their own goroutines, one at a time per room, so a slow
// backend delays only the room waiting on it.
type Hub struct {
	store          store.MessageStore
	log            *zerolog.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	storageTimeout time.Duration

	rooms   map[string]*Room
	clients map[*Client]struct{}
	// pending holds the storage commands of each room; the head is in flight.
	pending map[string][]envelope

	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	completed  chan completion
	stopped    chan struct{}
}

// envelope carries a command into the hub loop. REST callers have no client
// and wait on reply instead.
type envelope struct {
	ctx    context.Context
	client *Client
	cmd    *Command
	reply  chan result
}

type result struct {
	msg store.Message
	err error
}

// completion reports a finished storage call back to the loop.
type completion struct {
	env envelope
	result
}

// Option customizes a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// WithMetrics sets the collectors updated by the hub.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithClock overrides the clock used for default display times.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithStorageTimeout bounds every storage call made by the hub.
func WithStorageTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.storageTimeout = d
		}
	}
}

// NewHub creates a hub persisting through st.
func NewHub(st store.MessageStore, opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		store:          st,
		log:            &nop,
		now:            time.Now,
		storageTimeout: defaultStorageTimeout,
		rooms:          make(map[string]*Room),
		clients:        make(map[*Client]struct{}),
		pending:        make(map[string][]envelope),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		inbox:          make(chan envelope),
		completed:      make(chan completion),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations and commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.addClient(ctx, c)
		case c := <-h.unregister:
			h.removeClient(c)
		case env := <-h.inbox:
			if env.ctx == nil {
				env.ctx = ctx
			}
			h.handle(env)
		case done := <-h.completed:
			h.finish(done)
		}
	}
}

// RegisterClient hands a client to the hub and starts consuming its Commands.
// It returns ErrHubStopped once Run has returned.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// UnregisterClient drops the client from every room and closes its Events.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// PostMessage persists msg and broadcasts it to the room, returning the stored record.
func (h *Hub) PostMessage(ctx context.Context, msg store.Message) (store.Message, error) {
	res, err := h.request(ctx, nil, &Command{Kind: CommandSendMessage, Room: msg.ChatID, Message: msg})
	if err != nil {
		return store.Message{}, err
	}
	return res.msg, res.err
}

// ClearRoom purges the room and notifies its subscribers.
func (h *Hub) ClearRoom(ctx context.Context, chatID string) error {
	res, err := h.request(ctx, nil, &Command{Kind: CommandClearRoom, Room: chatID})
	if err != nil {
		return err
	}
	return res.err
}

// request runs cmd on behalf of c (nil for REST callers) and waits for the outcome.
func (h *Hub) request(ctx context.Context, c *Client, cmd *Command) (result, error) {
	reply := make(chan result, 1)
	select {
	case h.inbox <- envelope{ctx: ctx, client: c, cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-h.stopped:
		return result{}, ErrHubStopped
	}

	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-h.stopped:
		select {
		case res := <-reply:
			return res, nil
		default:
			return result{}, ErrHubStopped
		}
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	if _, ok := h.clients[c]; ok {
		return
	}
	h.clients[c] = struct{}{}
	h.metrics.ClientConnected()
	h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client registered")

	go h.forward(ctx, c)
}

// forward moves commands from a client into the hub loop until the client is
// unregistered or the hub stops.
func (h *Hub) forward(ctx context.Context, c *Client) {
	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for name := range c.Rooms {
		if room, ok := h.rooms[name]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(h.rooms, name)
			}
		}
	}
	c.Rooms = make(map[string]struct{})
	delete(h.clients, c)
	close(c.done)
	close(c.Events)
	h.metrics.ClientDisconnected()
	h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client unregistered")
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		h.removeClient(c)
	}
}

func (h *Hub) handle(env envelope) {
	if env.client != nil {
		if _, ok := h.clients[env.client]; !ok {
			// raced with unregister
			env.respond(result{err: errClientGone})
			return
		}
	}

	cmd := env.cmd
	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(env.client, cmd.Room)
	case CommandSendMessage, CommandClearRoom:
		h.enqueue(env)
		return
	case CommandTyping:
		h.typing(env.client, cmd)
	default:
		cerr := coreError(ErrCodeInvalidMessage, "unknown command")
		h.notify(env.client, &Event{Kind: EventError, Error: cerr})
		env.respond(result{err: cerr})
		return
	}
	env.respond(result{})
}

// enqueue queues a storage command behind the room's in-flight one.
func (h *Hub) enqueue(env envelope) {
	room := env.cmd.Room
	h.pending[room] = append(h.pending[room], env)
	if len(h.pending[room]) == 1 {
		h.start(env)
	}
}

// start runs the storage call of env off the loop and reports back on completed.
func (h *Hub) start(env envelope) {
	cmd := env.cmd
	msg := cmd.Message
	if cmd.Kind == CommandSendMessage {
		msg.ChatID = cmd.Room
		if msg.Time == "" {
			msg.Time = DisplayTime(h.now())
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(env.ctx, h.storageTimeout)
		defer cancel()

		var err error
		if cmd.Kind == CommandSendMessage {
			err = h.store.SaveMessage(ctx, &msg)
		} else {
			err = h.store.ClearRoom(ctx, cmd.Room)
		}

		select {
		case h.completed <- completion{env: env, result: result{msg: msg, err: err}}:
		case <-h.stopped:
		}
	}()
}

// finish applies a storage outcome and starts the room's next queued command.
func (h *Hub) finish(done completion) {
	env := done.env
	res := done.result
	if env.cmd.Kind == CommandSendMessage {
		res = h.sent(env.client, env.cmd.Room, res)
	} else {
		res.err = h.cleared(env.client, env.cmd.Room, res.err)
	}
	env.respond(res)

	room := env.cmd.Room
	queue := h.pending[room][1:]
	if len(queue) == 0 {
		delete(h.pending, room)
		return
	}
	h.pending[room] = queue
	h.start(queue[0])
}

func (env envelope) respond(res result) {
	if env.reply != nil {
		env.reply <- res
	}
}

func (h *Hub) join(c *Client, name string) {
	if c == nil || name == "" {
		return
	}
	room, ok := h.rooms[name]
	if !ok {
		room = NewRoom(name)
		h.rooms[name] = room
	}
	if room.AddClient(c) {
		c.Rooms[name] = struct{}{}
		h.log.Debug().Str("client_id", c.ID).Str("chat_id", name).Msg("joined room")
	}
}

func (h *Hub) sent(c *Client, room string, res result) result {
	if res.err != nil {
		h.metrics.StorageError("save")
		h.log.Error().Err(res.err).Str("chat_id", room).Msg("failed to save message")
		h.notify(c, &Event{Kind: EventError, Room: room, Error: coreError(ErrCodeStorage, "failed to save message")})
		return result{err: res.err}
	}
	h.metrics.MessageSaved()

	h.broadcast(room, &Event{Kind: EventNewMessage, Room: room, Message: res.msg}, nil)
	return res
}

func (h *Hub) typing(c *Client, cmd *Command) {
	h.broadcast(cmd.Room, &Event{Kind: EventUserTyping, Room: cmd.Room, Payload: cmd.Payload}, c)
}

func (h *Hub) cleared(c *Client, name string, err error) error {
	if err != nil {
		h.metrics.StorageError("clear")
		h.log.Error().Err(err).Str("chat_id", name).Msg("failed to clear room")
		h.notify(c, &Event{Kind: EventError, Room: name, Error: coreError(ErrCodeStorage, "failed to clear messages")})
		return err
	}

	h.log.Info().Str("chat_id", name).Msg("room cleared")
	h.broadcast(name, &Event{Kind: EventChatCleared, Room: name}, nil)
	return nil
}

func (h *Hub) broadcast(name string, event *Event, skip *Client) {
	room, ok := h.rooms[name]
	if !ok {
		return
	}
	if dropped := room.Broadcast(event, skip); dropped > 0 {
		h.metrics.EventsDropped(dropped)
		h.log.Warn().Str("chat_id", name).Int("dropped", dropped).Msg("slow subscribers missed event")
	}
}

// notify sends an event to a single registered client; REST callers have none.
func (h *Hub) notify(c *Client, event *Event) {
	if c == nil {
		return
	}
	if _, ok := h.clients[c]; !ok {
		return
	}
	if !c.send(event) {
		h.metrics.EventsDropped(1)
	}
}
