package broker

import "sync"

// Directory is the joint registry of live endpoints and existing
// channels. Both indexes use read-write locking (shared reads,
// exclusive writes); the directory never calls back into an endpoint
// while holding a lock on the endpoint index — resolve, release, then
// act. Grounded in original_source/server/src/tslm/directory.rs.
type Directory struct {
	endpointsMu sync.RWMutex
	endpoints   map[EndpointID]*Endpoint

	channelsMu sync.RWMutex
	channels   map[ChannelID]*Channel

	obs Observer
}

// NewDirectory builds an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		endpoints: make(map[EndpointID]*Endpoint),
		channels:  make(map[ChannelID]*Channel),
	}
}

// SetObserver attaches obs so every channel created afterward reports
// delivery/prune events through it. A nil Observer (the zero
// value) disables reporting.
func (d *Directory) SetObserver(obs Observer) {
	d.obs = obs
}

// RegisterEndpoint inserts the endpoint keyed by its id. It is an error
// to register an id that is already present (D1).
func (d *Directory) RegisterEndpoint(ep *Endpoint) *Error {
	d.endpointsMu.Lock()
	defer d.endpointsMu.Unlock()
	if _, exists := d.endpoints[ep.ID()]; exists {
		return ErrAlreadyExists(KindGeneric, "endpoint")
	}
	d.endpoints[ep.ID()] = ep
	return nil
}

// UnregisterEndpoint removes the entry if present; absence is not an
// error. Per D4, it deliberately does not touch channel subscriber
// maps — those are pruned lazily on the next publish (spec.md §9).
func (d *Directory) UnregisterEndpoint(id EndpointID) {
	d.endpointsMu.Lock()
	defer d.endpointsMu.Unlock()
	delete(d.endpoints, id)
}

// FindEndpoint looks up an endpoint by id.
func (d *Directory) FindEndpoint(id EndpointID) (*Endpoint, bool) {
	d.endpointsMu.RLock()
	defer d.endpointsMu.RUnlock()
	ep, ok := d.endpoints[id]
	return ep, ok
}

// EndpointCount reports the number of live endpoints, for reporting.
func (d *Directory) EndpointCount() int {
	d.endpointsMu.RLock()
	defer d.endpointsMu.RUnlock()
	return len(d.endpoints)
}

// CreateChannel inserts a new empty channel. It is an error to create a
// channel id that already exists (D2); this leaves the directory
// unchanged on failure.
func (d *Directory) CreateChannel(id ChannelID) *Error {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	if _, exists := d.channels[id]; exists {
		return ErrAlreadyExists(KindGeneric, "channel")
	}
	ch := NewChannel(id)
	ch.obs = d.obs
	d.channels[id] = ch
	return nil
}

// FindChannel looks up a channel by id.
func (d *Directory) FindChannel(id ChannelID) (*Channel, bool) {
	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	ch, ok := d.channels[id]
	return ch, ok
}

// ChannelCount reports the number of channels, for reporting.
func (d *Directory) ChannelCount() int {
	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	return len(d.channels)
}

// SubscribeToChannel resolves the channel then delegates the subscribe,
// never holding the channel-index lock while calling into the channel's
// own lock.
func (d *Directory) SubscribeToChannel(id ChannelID, ep *Endpoint) *Error {
	ch, ok := d.FindChannel(id)
	if !ok {
		return ErrChannelNotFound(string(id))
	}
	ch.Subscribe(ep)
	return nil
}
