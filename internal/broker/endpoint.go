package broker

import (
	"fmt"

	"github.com/adred-codev/lastmile/internal/protocol"
)

// Endpoint represents one connected client: outbound event queue,
// permission set, and inbound command dispatch. Grounded in
// original_source/server/src/tslm/endpoint.rs's on_command/notify_channel/
// subscribe/send/unregister shape.
type Endpoint struct {
	id          EndpointID
	permissions PermissionSet
	outbox      Outbox
	directory   *Directory

	obs          Observer
	listenerName string
}

// newEndpoint is unexported: endpoints are minted exclusively by Hub.CreateEndpoint,
// which also registers them with the directory (spec.md §4.7).
func newEndpoint(id EndpointID, permissions PermissionSet, outbox Outbox, directory *Directory) *Endpoint {
	return &Endpoint{id: id, permissions: permissions, outbox: outbox, directory: directory}
}

// ID returns the endpoint's id.
func (e *Endpoint) ID() EndpointID { return e.id }

// Permissions returns the endpoint's fixed permission set.
func (e *Endpoint) Permissions() PermissionSet { return e.permissions }

// Outbox exposes the endpoint's outbound queue so the connection handler
// can drain it.
func (e *Endpoint) Outbox() Outbox { return e.outbox }

// OnCommand dispatches cmd by variant after a permission check,
// enqueuing exactly one Success or Error reply to the client per
// spec.md §4.5. It never returns a connection-fatal error: every
// failure becomes a queued Error event.
func (e *Endpoint) OnCommand(cmd protocol.Command) {
	var ack protocol.Event
	if err := e.dispatch(cmd); err != nil {
		if e.obs != nil {
			e.obs.CommandError(e.listenerName, err.Kind)
		}
		ack = protocol.NewErrorEvent(err.Error())
	} else {
		ack = protocol.NewSuccessEvent(successText(cmd))
	}
	e.send(ack)
}

func (e *Endpoint) dispatch(cmd protocol.Command) *Error {
	switch cmd.Kind {
	case protocol.CommandCreateChannel:
		if !e.permissions.Has(PermissionCreateChannel) {
			return ErrPermissionDenied(PermissionCreateChannel)
		}
		return e.directory.CreateChannel(ChannelID(cmd.ChannelID))

	case protocol.CommandSubscribe:
		if !e.permissions.Has(PermissionSubscribe) {
			return ErrPermissionDenied(PermissionSubscribe)
		}
		self, ok := e.directory.FindEndpoint(e.id)
		if !ok {
			return ErrEndpointNotFound(e.id)
		}
		return e.directory.SubscribeToChannel(ChannelID(cmd.ChannelID), self)

	case protocol.CommandNotifyChannel:
		if !e.permissions.Has(PermissionNotifyChannel) {
			return ErrPermissionDenied(PermissionNotifyChannel)
		}
		ch, ok := e.directory.FindChannel(ChannelID(cmd.ChannelID))
		if !ok {
			return ErrChannelNotFound(cmd.ChannelID)
		}
		ch.Publish(cmd.Message)
		if e.obs != nil {
			e.obs.MessagePublished(e.listenerName)
		}
		return nil

	default:
		return newErr(KindWireProtocol, "unknown command kind %d", cmd.Kind)
	}
}

// successText produces implementation-defined human-readable ack text.
// Per spec.md §9's Open Question, no stable contract is defined for this
// payload and tests must not rely on it; it exists purely for operator
// debugging.
func successText(cmd protocol.Command) string {
	switch cmd.Kind {
	case protocol.CommandCreateChannel:
		return fmt.Sprintf("channel %q created", cmd.ChannelID)
	case protocol.CommandSubscribe:
		return fmt.Sprintf("subscribed to %q", cmd.ChannelID)
	case protocol.CommandNotifyChannel:
		return fmt.Sprintf("published to %q", cmd.ChannelID)
	default:
		return "ok"
	}
}

// send enqueues onto the outbound queue, reporting false if the queue is
// closed. It is unexported: producers outside the endpoint (Channel
// fan-out) call it without being able to observe the ChannelSend error
// kind directly, matching spec.md §4.4's "the publish does not fail
// overall because some subscribers died."
func (e *Endpoint) send(event protocol.Event) bool {
	return e.outbox.Send(event)
}

// Send is the public variant of send: it pushes an event and reports a
// failed delivery as a KindInternalSendFailed error, per spec.md §4.5.
func (e *Endpoint) Send(event protocol.Event) *Error {
	if !e.outbox.Send(event) {
		return ErrInternalSendFailed(e.id)
	}
	return nil
}

// Unregister removes the endpoint from the directory. It is called
// exactly once, by the connection handler on exit.
func (e *Endpoint) Unregister() {
	e.directory.UnregisterEndpoint(e.id)
}
