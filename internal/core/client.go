package core

const (
	commandBuffer = 16
	eventBuffer   = 64
)

// Client is a push-channel connection as seen by the core layer.
// The hub closes Events once the client is unregistered.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event
	// Rooms is owned by the hub goroutine.
	Rooms map[string]struct{}

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
		Rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// send delivers an event without blocking. It reports false when the buffer is full.
func (c *Client) send(event *Event) bool {
	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}
