package notify

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Lifecycle states of the notification client.
const (
	stateUnstarted int32 = iota
	stateRunning
	stateStopping
	stateStopped
)

// Client subscribes to a node's notification bus and feeds decoded
// notifications to registered handlers from a background receive loop.
// It is safe for concurrent use; handler registration is allowed in every
// lifecycle state and takes effect on the next inbound frame.
type Client struct {
	transport Transport
	topics    []Topic
	log       *zap.Logger
	disp      *dispatcher

	// lifeMu serializes Start/Stop transitions.
	lifeMu   sync.Mutex
	state    *atomic.Int32
	loopDone chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger, zap.NewNop() by default.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTopics restricts the subscription to the given topics instead of the
// full default set.
func WithTopics(topics ...Topic) Option {
	return func(c *Client) { c.topics = topics }
}

// New creates a Client over the given transport. Nothing is connected until
// Start.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		topics:    DefaultTopics(),
		log:       zap.NewNop(),
		state:     atomic.NewInt32(stateUnstarted),
	}
	for _, o := range opts {
		o(c)
	}
	c.disp = newDispatcher(c.log)
	return c
}

// NewZMQ is a shorthand for New over a ZMQ transport to the given endpoint.
func NewZMQ(endpoint string, opts ...Option) *Client {
	return New(NewZMQTransport(endpoint), opts...)
}

// On registers a handler for a topic. The returned ID unregisters it via
// Off. Handlers registered while the loop is running receive the next
// inbound frame of their topic; frames dispatched before registration are
// never replayed.
func (c *Client) On(topic Topic, h Handler) HandlerID {
	return c.disp.add(topic, h)
}

// Off removes a previously registered handler. Unknown IDs are ignored.
func (c *Client) Off(id HandlerID) {
	c.disp.remove(id)
}

// Gaps returns the number of sequence gaps detected since creation.
func (c *Client) Gaps() uint64 {
	return c.disp.gaps.Load()
}

// Start subscribes the transport and launches the receive loop. It is a
// no-op when already running and restarts the subscription from scratch
// when the client was stopped before.
func (c *Client) Start() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.state.Load() == stateRunning {
		return nil
	}
	if err := c.transport.Subscribe(c.topics); err != nil {
		return fmt.Errorf("unable to start notification client: %w", err)
	}
	// Server counters restart across subscriptions, discontinuities at this
	// point are not gaps.
	c.disp.resetSequences()
	c.loopDone = make(chan struct{})
	c.state.Store(stateRunning)
	go c.receiveLoop(c.loopDone)
	c.log.Info("notification client started", zap.Int("topics", len(c.topics)))
	return nil
}

// Stop terminates the receive loop and closes the transport. It returns
// only after the loop goroutine has fully exited, so no handler invocation
// happens after Stop returns; a handler running at the moment of the call
// completes first. Stopping an unstarted or stopped client is a no-op.
func (c *Client) Stop() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.state.Load() != stateRunning {
		return
	}
	c.state.Store(stateStopping)
	// Closing the transport unblocks the loop's pending Receive.
	if err := c.transport.Close(); err != nil {
		c.log.Debug("transport close", zap.Error(err))
	}
	<-c.loopDone
	c.state.Store(stateStopped)
	c.log.Info("notification client stopped")
}

// receiveLoop pulls frames from the transport and dispatches them until the
// transport fails or the client is stopped. On an unexpected transport
// failure the loop closes the transport and parks the client in the
// stopped state rather than spinning, reconnection is the caller's call.
func (c *Client) receiveLoop(done chan struct{}) {
	defer close(done)
	for {
		f, err := c.transport.Receive()
		if err != nil {
			if c.state.Load() == stateStopping {
				return
			}
			transportErrors.Inc()
			c.log.Error("notification transport failed", zap.Error(err))
			_ = c.transport.Close()
			c.state.Store(stateStopped)
			return
		}
		n, err := c.disp.decode(f)
		if err != nil {
			c.log.Warn("skipping malformed frame", zap.Error(err))
			continue
		}
		framesReceived.Inc()
		c.disp.dispatch(n)
	}
}
