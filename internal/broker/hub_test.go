package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubCreateEndpointAllocatesMonotonicIDs(t *testing.T) {
	hub := NewHub()

	ep1, err := hub.CreateEndpoint(EndpointSettings{Permissions: NewPermissionSet()})
	require.Nil(t, err)
	ep2, err := hub.CreateEndpoint(EndpointSettings{Permissions: NewPermissionSet()})
	require.Nil(t, err)

	assert.NotEqual(t, ep1.ID(), ep2.ID())
	assert.Less(t, ep1.ID(), ep2.ID())
}

func TestHubCreateEndpointRegistersWithDirectory(t *testing.T) {
	hub := NewHub()

	ep, err := hub.CreateEndpoint(EndpointSettings{Permissions: NewPermissionSet()})
	require.Nil(t, err)

	found, ok := hub.Directory().FindEndpoint(ep.ID())
	require.True(t, ok)
	assert.Same(t, ep, found)
}

func TestHubCreateEndpointBoundedQueue(t *testing.T) {
	hub := NewHub()

	ep, err := hub.CreateEndpoint(EndpointSettings{Permissions: NewPermissionSet(), ChannelBufferSize: 1})
	require.Nil(t, err)

	_, isBounded := ep.Outbox().(*boundedOutbox)
	assert.True(t, isBounded)
}

func TestHubCreateEndpointUnboundedQueueByDefault(t *testing.T) {
	hub := NewHub()

	ep, err := hub.CreateEndpoint(EndpointSettings{Permissions: NewPermissionSet()})
	require.Nil(t, err)

	_, isUnbounded := ep.Outbox().(*unboundedOutbox)
	assert.True(t, isUnbounded)
}
