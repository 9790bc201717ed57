package broker

import (
	"sync"

	"github.com/adred-codev/lastmile/internal/protocol"
)

// Outbox is an endpoint's outbound event queue. It is single-consumer
// (drained by exactly one connection handler) and multi-producer (any
// number of channel fan-outs may enqueue concurrently), per spec.md §5.
//
// Two implementations exist because spec.md §4.5 and §9 call for two
// backpressure policies that the handler boundary must treat uniformly:
// unboundedOutbox never blocks or drops; boundedOutbox fails fast when
// full so Channel.Publish can prune the subscriber. Design note §9 flags
// the teacher's wrap-bounded-in-unbounded shim as avoidable; this
// interface is the "tagged choice at the handler boundary" it
// recommends instead.
type Outbox interface {
	// Send enqueues an event. It reports false if the outbox is closed
	// (unbounded) or if the queue is full (bounded) — in both cases the
	// caller (Channel.Publish) treats the subscriber as dead.
	Send(e protocol.Event) bool
	// Recv blocks until an event is available or the outbox is closed,
	// in which case ok is false.
	Recv() (e protocol.Event, ok bool)
	// Close marks the outbox closed; subsequent Sends fail.
	Close()
}

// NewOutbox builds an unbounded outbox when bufferSize <= 0, or a
// bounded one of the given capacity otherwise, per spec.md §4.5: "when
// the listener configures a positive channel_buffer_size the endpoint
// is instead constructed with a bounded queue of that capacity."
func NewOutbox(bufferSize int) Outbox {
	if bufferSize > 0 {
		return newBoundedOutbox(bufferSize)
	}
	return newUnboundedOutbox()
}

// boundedOutbox is a fixed-capacity queue. A full queue fails fast
// rather than blocking the fan-out producer.
type boundedOutbox struct {
	ch     chan protocol.Event
	mu     sync.Mutex
	closed bool
}

func newBoundedOutbox(capacity int) *boundedOutbox {
	return &boundedOutbox{ch: make(chan protocol.Event, capacity)}
}

func (b *boundedOutbox) Send(e protocol.Event) bool {
	// The lock is held across the non-blocking send so Close cannot close
	// the channel between the closed check and the send.
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	select {
	case b.ch <- e:
		return true
	default:
		return false
	}
}

func (b *boundedOutbox) Recv() (protocol.Event, bool) {
	e, ok := <-b.ch
	return e, ok
}

func (b *boundedOutbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}

// unboundedOutbox never blocks a producer and never drops: it grows an
// internal slice buffer, backed by a feeder goroutine that forwards into
// a single-item handoff channel for the consumer to range/receive over.
type unboundedOutbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []protocol.Event
	closed bool
	out    chan protocol.Event
	once   sync.Once
}

func newUnboundedOutbox() *unboundedOutbox {
	u := &unboundedOutbox{out: make(chan protocol.Event)}
	u.cond = sync.NewCond(&u.mu)
	go u.pump()
	return u
}

func (u *unboundedOutbox) Send(e protocol.Event) bool {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return false
	}
	u.queue = append(u.queue, e)
	u.mu.Unlock()
	u.cond.Signal()
	return true
}

func (u *unboundedOutbox) pump() {
	defer close(u.out)
	for {
		u.mu.Lock()
		for len(u.queue) == 0 && !u.closed {
			u.cond.Wait()
		}
		if len(u.queue) == 0 && u.closed {
			u.mu.Unlock()
			return
		}
		e := u.queue[0]
		u.queue = u.queue[1:]
		u.mu.Unlock()
		u.out <- e
	}
}

func (u *unboundedOutbox) Recv() (protocol.Event, bool) {
	e, ok := <-u.out
	return e, ok
}

func (u *unboundedOutbox) Close() {
	u.once.Do(func() {
		u.mu.Lock()
		u.closed = true
		u.mu.Unlock()
		u.cond.Signal()
	})
}
