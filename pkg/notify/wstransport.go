package notify

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WSTransport consumes the same framed notifications over a websocket
// bridge. Some deployments front the node's ZMQ publisher with a websocket
// proxy for browser and firewall reach; the bridge forwards each multipart
// message as one binary websocket message with length-prefixed parts.
// Subscriptions are issued as text messages of the form "subscribe <topic>".
type WSTransport struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSTransport creates a transport for a ws:// or wss:// bridge URL.
func NewWSTransport(url string) *WSTransport {
	return &WSTransport{
		url:    url,
		dialer: websocket.DefaultDialer,
	}
}

// Subscribe implements the Transport interface.
func (t *WSTransport) Subscribe(topics []Topic) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return fmt.Errorf("transport to %s is already open", t.url)
	}
	conn, _, err := t.dialer.Dial(t.url, nil)
	if err != nil {
		return fmt.Errorf("unable to dial %s: %w", t.url, err)
	}
	for _, tp := range topics {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("subscribe "+string(tp))); err != nil {
			_ = conn.Close()
			return fmt.Errorf("unable to subscribe to %s: %w", tp, err)
		}
	}
	t.conn = conn
	return nil
}

// Receive implements the Transport interface. Non-binary messages are
// control chatter of the bridge and are skipped.
func (t *WSTransport) Receive() (RawFrame, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return RawFrame{}, fmt.Errorf("transport to %s is closed", t.url)
	}
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return RawFrame{}, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		parts, err := splitFrame(data)
		if err != nil {
			return RawFrame{}, err
		}
		return RawFrame{Parts: parts}, nil
	}
}

// Close implements the Transport interface.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// EncodeFrame packs multipart frame parts into the bridge's single-message
// form. It is the inverse of the decoding Receive performs and is what a
// bridge (or a test publisher) uses on the sending side.
func EncodeFrame(parts ...[]byte) []byte {
	var size int
	for _, p := range parts {
		size += 4 + len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(p)))
		buf = append(buf, l[:]...)
		buf = append(buf, p...)
	}
	return buf
}

func splitFrame(data []byte) ([][]byte, error) {
	var parts [][]byte
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("truncated frame part header (%d bytes left)", len(data))
		}
		l := binary.LittleEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < l {
			return nil, fmt.Errorf("truncated frame part (%d of %d bytes)", len(data), l)
		}
		parts = append(parts, data[:l])
		data = data[l:]
	}
	return parts, nil
}
