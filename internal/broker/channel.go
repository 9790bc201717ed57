package broker

import (
	"sync"

	"github.com/adred-codev/lastmile/internal/protocol"
)

// Channel holds a set of subscriber endpoints and performs fan-out
// publish, self-pruning subscribers whose outbox has become
// unreachable. Grounded in
// original_source/server/src/tslm/channel.rs, generalized from a single
// RwLock<Vec<Arc<Endpoint>>> to an ordered map so re-subscribing an
// endpoint is idempotent per spec.md §4.4 rather than appending a
// duplicate entry.
type Channel struct {
	id ChannelID

	mu    sync.RWMutex
	byID  map[EndpointID]*Endpoint
	order []EndpointID // insertion order, for deterministic fan-out replay

	obs Observer
}

// NewChannel creates an empty channel with the given id.
func NewChannel(id ChannelID) *Channel {
	return &Channel{
		id:   id,
		byID: make(map[EndpointID]*Endpoint),
	}
}

// ID returns the channel's id.
func (c *Channel) ID() ChannelID { return c.id }

// Subscribe inserts the endpoint keyed by its id. Re-subscribing an
// already-present endpoint is idempotent: the entry is overwritten and
// its insertion-order position is left unchanged.
func (c *Channel) Subscribe(ep *Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byID[ep.ID()]; !exists {
		c.order = append(c.order, ep.ID())
	}
	c.byID[ep.ID()] = ep
}

// Unsubscribe removes the entry if present; absence is not an error.
func (c *Channel) Unsubscribe(id EndpointID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

func (c *Channel) removeLocked(id EndpointID) {
	if _, exists := c.byID[id]; !exists {
		return
	}
	delete(c.byID, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SubscriberCount reports how many subscribers the channel currently
// holds, for tests and metrics.
func (c *Channel) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Publish builds one ChannelMessage event and attempts to enqueue it
// onto every current subscriber's outbox, in insertion-order-stable
// order. Per-subscriber enqueue failures are collected and pruned after
// the fan-out pass completes in a separate exclusive critical section,
// so fan-out never holds the write lock while calling into endpoints
// (spec.md §4.4).
func (c *Channel) Publish(msg protocol.ChannelMessage) {
	event := protocol.NewChannelMessageEvent(string(c.id), msg)

	c.mu.RLock()
	targets := make([]*Endpoint, 0, len(c.order))
	for _, id := range c.order {
		if ep, ok := c.byID[id]; ok {
			targets = append(targets, ep)
		}
	}
	c.mu.RUnlock()

	var dead []*Endpoint
	for _, ep := range targets {
		if ep.send(event) {
			if c.obs != nil {
				c.obs.MessageDelivered(ep.listenerName)
			}
		} else {
			dead = append(dead, ep)
		}
	}

	if len(dead) == 0 {
		return
	}
	c.mu.Lock()
	for _, ep := range dead {
		c.removeLocked(ep.ID())
	}
	c.mu.Unlock()

	if c.obs != nil {
		for _, ep := range dead {
			c.obs.SubscriberPruned(ep.listenerName)
		}
	}
}
