/*
Package notify implements a client for the push-notification bus of an
Evrmore node. The node publishes topic-tagged multipart frames over ZMQ;
Client maintains the subscription, decodes the frames and fans them out to
registered per-topic handlers from a background loop. Transport failures
stop the loop cleanly, reconnecting is the caller's decision via Stop and
Start. The loop runs independently of any RPC activity on the same node.
*/
package notify

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Topic identifies a notification stream published by the node.
type Topic string

// Topics published by Evrmore nodes.
const (
	// TopicHashBlock carries the hash of every connected block.
	TopicHashBlock Topic = "hashblock"
	// TopicHashTx carries the hash of every accepted transaction.
	TopicHashTx Topic = "hashtx"
	// TopicRawBlock carries whole serialized blocks.
	TopicRawBlock Topic = "rawblock"
	// TopicRawTx carries whole serialized transactions.
	TopicRawTx Topic = "rawtx"
)

// DefaultTopics returns the full set of topics a node can publish.
func DefaultTopics() []Topic {
	return []Topic{TopicHashBlock, TopicHashTx, TopicRawBlock, TopicRawTx}
}

// Notification is one decoded message from the bus. The payload is either a
// short identifier (a hash for hashblock/hashtx) or a serialized blob
// (rawblock/rawtx); its interpretation belongs to the handler. A
// Notification is handed to handlers for the duration of their invocation
// and not retained by the client afterwards.
type Notification struct {
	Topic Topic
	// Sequence is the server's per-topic message counter, it restarts when
	// the node restarts publishing.
	Sequence uint32
	Payload  []byte
	Received time.Time
}

// Hex returns the hexadecimal form of the payload.
func (n Notification) Hex() string {
	return hex.EncodeToString(n.Payload)
}

// Handler processes one notification. Handlers for a topic run in
// registration order on the client's receive loop; a panicking handler is
// isolated and reported without disturbing other handlers or later frames.
type Handler func(Notification)

// HandlerID identifies one registered handler, it's the ticket for Off.
type HandlerID = uuid.UUID
