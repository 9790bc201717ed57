package broker

import "sync/atomic"

// Sequence is a monotonic, thread-safe allocator of endpoint ids.
// Wrap-around of the underlying uint64 is treated as operationally
// impossible and is not guarded against, matching
// original_source/server/src/tslm/hub.rs's AtomicU64 Sequence.
type Sequence struct {
	next uint64
}

// Next atomically returns the current value and increments it.
func (s *Sequence) Next() EndpointID {
	return EndpointID(atomic.AddUint64(&s.next, 1) - 1)
}
