package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// RawFrame is one multipart message as read off the bus: topic bytes, a
// 4-byte little-endian sequence number and the payload.
type RawFrame struct {
	Parts [][]byte
}

// Transport maintains the raw connection to the notification bus and yields
// its frames. Implementations must make a blocked Receive return an error
// once Close is called, and must support Subscribe anew after Close
// (restart re-subscribes from scratch).
type Transport interface {
	// Subscribe opens the connection and issues subscriptions for the topics.
	Subscribe(topics []Topic) error
	// Receive blocks until the next frame arrives or the transport fails.
	Receive() (RawFrame, error)
	// Close tears the connection down. Safe to call multiple times.
	Close() error
}

// ZMQTransport reads notifications from a node's ZMQ publisher socket.
type ZMQTransport struct {
	endpoint string

	mu   sync.Mutex
	sock zmq4.Socket
}

// NewZMQTransport creates a transport for the given publisher endpoint
// (e.g. "tcp://127.0.0.1:28332"). No connection is made until Subscribe.
func NewZMQTransport(endpoint string) *ZMQTransport {
	return &ZMQTransport{endpoint: endpoint}
}

// Subscribe implements the Transport interface.
func (t *ZMQTransport) Subscribe(topics []Topic) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sock != nil {
		return fmt.Errorf("transport to %s is already open", t.endpoint)
	}
	sock := zmq4.NewSub(context.Background())
	if err := sock.Dial(t.endpoint); err != nil {
		return fmt.Errorf("unable to dial %s: %w", t.endpoint, err)
	}
	for _, tp := range topics {
		if err := sock.SetOption(zmq4.OptionSubscribe, string(tp)); err != nil {
			_ = sock.Close()
			return fmt.Errorf("unable to subscribe to %s: %w", tp, err)
		}
	}
	t.sock = sock
	return nil
}

// Receive implements the Transport interface.
func (t *ZMQTransport) Receive() (RawFrame, error) {
	t.mu.Lock()
	sock := t.sock
	t.mu.Unlock()
	if sock == nil {
		return RawFrame{}, fmt.Errorf("transport to %s is closed", t.endpoint)
	}
	msg, err := sock.Recv()
	if err != nil {
		return RawFrame{}, err
	}
	return RawFrame{Parts: msg.Frames}, nil
}

// Close implements the Transport interface.
func (t *ZMQTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sock == nil {
		return nil
	}
	err := t.sock.Close()
	t.sock = nil
	return err
}
