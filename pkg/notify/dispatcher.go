package notify

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// registration binds one handler to its ID within a topic's ordered set.
type registration struct {
	id uuid.UUID
	fn Handler
}

// dispatcher decodes raw frames into Notifications and fans them out to the
// registered handlers. Registration and dispatch may run concurrently, the
// dispatch side works on a per-frame snapshot of the handler set so it
// never observes a partial update.
type dispatcher struct {
	log *zap.Logger

	mu       sync.RWMutex
	handlers map[Topic][]registration

	seqMu   sync.Mutex
	lastSeq map[Topic]uint32
	gaps    *atomic.Uint64
}

func newDispatcher(log *zap.Logger) *dispatcher {
	return &dispatcher{
		log:      log,
		handlers: make(map[Topic][]registration),
		lastSeq:  make(map[Topic]uint32),
		gaps:     atomic.NewUint64(0),
	}
}

func (d *dispatcher) add(topic Topic, h Handler) HandlerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.handlers[topic] = append(d.handlers[topic], registration{id: id, fn: h})
	return id
}

func (d *dispatcher) remove(id HandlerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for topic, regs := range d.handlers {
		for i := range regs {
			if regs[i].id == id {
				d.handlers[topic] = append(regs[:i:i], regs[i+1:]...)
				return
			}
		}
	}
}

// snapshot returns the topic's handlers as they are registered right now,
// in registration order.
func (d *dispatcher) snapshot(topic Topic) []registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	regs := d.handlers[topic]
	out := make([]registration, len(regs))
	copy(out, regs)
	return out
}

// decode turns a raw multipart frame into a Notification. The expected
// parts are topic, 4-byte little-endian sequence number and payload.
func (d *dispatcher) decode(f RawFrame) (Notification, error) {
	if len(f.Parts) != 3 {
		return Notification{}, fmt.Errorf("malformed frame: %d parts instead of 3", len(f.Parts))
	}
	if len(f.Parts[1]) != 4 {
		return Notification{}, fmt.Errorf("malformed sequence number: %d bytes instead of 4", len(f.Parts[1]))
	}
	return Notification{
		Topic:    Topic(f.Parts[0]),
		Sequence: binary.LittleEndian.Uint32(f.Parts[1]),
		Payload:  f.Parts[2],
		Received: time.Now(),
	}, nil
}

// dispatch records the notification's sequence and invokes every handler
// registered for its topic. A failing handler never blocks the remaining
// handlers or subsequent frames.
func (d *dispatcher) dispatch(n Notification) {
	d.trackSequence(n)
	for _, reg := range d.snapshot(n.Topic) {
		d.invoke(reg, n)
	}
}

func (d *dispatcher) invoke(reg registration, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			dispatchErrors.Inc()
			d.log.Error("notification handler failed",
				zap.String("topic", string(n.Topic)),
				zap.Uint32("sequence", n.Sequence),
				zap.Any("reason", r))
		}
	}()
	reg.fn(n)
}

// trackSequence detects per-topic sequence gaps. A gap means the bus
// dropped messages, it's reported but delivery continues. The first frame
// of a topic establishes the baseline, so restarts (which reset the
// tracker) never report the server's counter discontinuity as a gap.
func (d *dispatcher) trackSequence(n Notification) {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	last, seen := d.lastSeq[n.Topic]
	d.lastSeq[n.Topic] = n.Sequence
	if !seen || n.Sequence == last+1 {
		return
	}
	d.gaps.Inc()
	sequenceGaps.Inc()
	d.log.Warn("notification sequence gap",
		zap.String("topic", string(n.Topic)),
		zap.Uint32("last", last),
		zap.Uint32("got", n.Sequence))
}

// resetSequences clears the gap tracker, used when a restarted subscription
// begins with the server's current counters.
func (d *dispatcher) resetSequences() {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	d.lastSeq = make(map[Topic]uint32)
}
