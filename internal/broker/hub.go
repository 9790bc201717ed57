package broker

// EndpointSettings parameterises endpoint creation: the permission set
// granted by the originating listener and its queue-buffer policy
// (spec.md §4.7, §4.5), plus the listener name attached to the endpoint
// for observer metrics attribution.
type EndpointSettings struct {
	Permissions       PermissionSet
	ChannelBufferSize int // 0 means unbounded
	ListenerName      string
}

// Hub is the factory that mints endpoints and registers them with the
// directory. Grounded in original_source/server/src/tslm/hub.rs, with
// the Sequence folded in as Hub's own id allocator (spec.md §4.1, §4.7).
type Hub struct {
	ids       Sequence
	directory *Directory
	obs       Observer
}

// NewHub builds a hub backed by a fresh directory.
func NewHub() *Hub {
	return &Hub{directory: NewDirectory()}
}

// SetObserver attaches obs to the hub and its directory so every endpoint
// and channel created afterward reports through it. Call it once, before
// any listener starts admitting connections; it is not safe to call
// concurrently with CreateEndpoint or channel creation.
func (h *Hub) SetObserver(obs Observer) {
	h.obs = obs
	h.directory.SetObserver(obs)
}

// Directory exposes the hub's directory, e.g. for server-level
// reporting endpoints.
func (h *Hub) Directory() *Directory { return h.directory }

// CreateEndpoint allocates an id, builds an endpoint with the configured
// permission set and queue discipline, and registers it with the
// directory. Failure to register aborts endpoint creation.
func (h *Hub) CreateEndpoint(settings EndpointSettings) (*Endpoint, *Error) {
	id := h.ids.Next()
	outbox := NewOutbox(settings.ChannelBufferSize)
	ep := newEndpoint(id, settings.Permissions, outbox, h.directory)
	ep.obs = h.obs
	ep.listenerName = settings.ListenerName
	if err := h.directory.RegisterEndpoint(ep); err != nil {
		outbox.Close()
		return nil, err
	}
	return ep, nil
}
