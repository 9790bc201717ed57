package broker

// Observer lets a caller outside the broker package learn about publish,
// delivery and command-error events without the broker itself depending
// on a metrics library. Every broker type that accepts one treats a nil
// Observer as a no-op, so tests and standalone use of this package never
// need to supply one. Grounded in the embedded MetricsInterface field
// go-server/pkg/websocket.Hub used to report the same kind of event to
// Prometheus without importing it into the hub's own package.
type Observer interface {
	// MessagePublished is called once per successful NotifyChannel
	// dispatch, labeled with the publishing endpoint's listener name.
	MessagePublished(listener string)
	// MessageDelivered is called once per subscriber a channel publish
	// successfully enqueued to, labeled with that subscriber's listener
	// name.
	MessageDelivered(listener string)
	// SubscriberPruned is called once per subscriber a channel drops
	// after a failed enqueue, labeled with that subscriber's listener
	// name.
	SubscriberPruned(listener string)
	// CommandError is called once per command dispatch that produced an
	// Error ack, labeled with the endpoint's listener name and the
	// error's Kind.
	CommandError(listener string, kind Kind)
}
