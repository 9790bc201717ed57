package protocol

import (
	"encoding/json"
	"fmt"
)

// EventKind tags which variant a decoded Event carries.
type EventKind int

const (
	EventChannelMessage EventKind = iota
	EventSuccess
	EventError
	EventText
)

// Event is the outbound server->client tagged variant from spec.md §3:
// ChannelMessage(ChannelId, ChannelMessage) | Success(string) |
// Error(string) | Text(string).
type Event struct {
	Kind      EventKind
	ChannelID string
	Message   ChannelMessage
	Text      string
}

func NewChannelMessageEvent(channelID string, msg ChannelMessage) Event {
	return Event{Kind: EventChannelMessage, ChannelID: channelID, Message: msg}
}

func NewSuccessEvent(text string) Event { return Event{Kind: EventSuccess, Text: text} }
func NewErrorEvent(text string) Event   { return Event{Kind: EventError, Text: text} }
func NewTextEvent(text string) Event    { return Event{Kind: EventText, Text: text} }

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventChannelMessage:
		return marshalTagged("ChannelMessage", []interface{}{e.ChannelID, e.Message})
	case EventSuccess:
		return marshalTagged("Success", e.Text)
	case EventError:
		return marshalTagged("Error", e.Text)
	case EventText:
		return marshalTagged("Text", e.Text)
	default:
		return nil, fmt.Errorf("protocol: unknown event kind %d", e.Kind)
	}
}

func (e *Event) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return err
	}
	switch tag {
	case "ChannelMessage":
		var tuple [2]json.RawMessage
		if err := json.Unmarshal(payload, &tuple); err != nil {
			return fmt.Errorf("protocol: decoding ChannelMessage payload: %w", err)
		}
		var id string
		if err := json.Unmarshal(tuple[0], &id); err != nil {
			return fmt.Errorf("protocol: decoding ChannelMessage channel id: %w", err)
		}
		var msg ChannelMessage
		if err := json.Unmarshal(tuple[1], &msg); err != nil {
			return fmt.Errorf("protocol: decoding ChannelMessage message: %w", err)
		}
		*e = NewChannelMessageEvent(id, msg)
	case "Success":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("protocol: decoding Success payload: %w", err)
		}
		*e = NewSuccessEvent(s)
	case "Error":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("protocol: decoding Error payload: %w", err)
		}
		*e = NewErrorEvent(s)
	case "Text":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("protocol: decoding Text payload: %w", err)
		}
		*e = NewTextEvent(s)
	default:
		return fmt.Errorf("protocol: unknown event variant %q", tag)
	}
	return nil
}

// Encode renders one Event as a JSON text frame.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}
