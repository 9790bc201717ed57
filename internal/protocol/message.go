// Package protocol implements the wire codec named in spec.md §6: UTF-8
// JSON text frames carrying tagged variants serialised as single-key
// objects, grounded in original_source/common/src/message.rs's
// serde-derived enum encoding.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ChannelMessage is the tagged payload carried by NotifyChannel commands
// and ChannelMessage events: either a plain Text string or an arbitrary
// Json document. The broker never inspects the payload (spec.md §3).
type ChannelMessage struct {
	Text *string
	Json json.RawMessage
}

// NewTextMessage builds a Text-variant ChannelMessage.
func NewTextMessage(s string) ChannelMessage {
	return ChannelMessage{Text: &s}
}

// NewJSONMessage builds a Json-variant ChannelMessage from an already
// encoded JSON document.
func NewJSONMessage(raw json.RawMessage) ChannelMessage {
	return ChannelMessage{Json: raw}
}

// MarshalJSON renders {"Text":"..."} or {"Json":...}.
func (m ChannelMessage) MarshalJSON() ([]byte, error) {
	if m.Text != nil {
		return marshalTagged("Text", *m.Text)
	}
	if m.Json != nil {
		return marshalTagged("Json", m.Json)
	}
	return nil, fmt.Errorf("protocol: empty ChannelMessage has no variant to encode")
}

// UnmarshalJSON parses a single-key tagged object into whichever
// variant is present.
func (m *ChannelMessage) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return err
	}
	switch tag {
	case "Text":
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return fmt.Errorf("protocol: decoding Text payload: %w", err)
		}
		m.Text = &s
		m.Json = nil
	case "Json":
		m.Json = append(json.RawMessage(nil), payload...)
		m.Text = nil
	default:
		return fmt.Errorf("protocol: unknown ChannelMessage variant %q", tag)
	}
	return nil
}

// Equal reports whether two ChannelMessage values carry the same
// variant and payload, used by round-trip tests.
func (m ChannelMessage) Equal(other ChannelMessage) bool {
	if (m.Text == nil) != (other.Text == nil) {
		return false
	}
	if m.Text != nil {
		return *m.Text == *other.Text
	}
	return jsonEqual(m.Json, other.Json)
}

func jsonEqual(a, b json.RawMessage) bool {
	var av, bv interface{}
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bv); err != nil {
		return false
	}
	ab, _ := json.Marshal(av)
	bb, _ := json.Marshal(bv)
	return string(ab) == string(bb)
}

// marshalTagged renders {"tag": value}.
func marshalTagged(tag string, value interface{}) ([]byte, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	buf := append([]byte(`{"`+tag+`":`), payload...)
	buf = append(buf, '}')
	return buf, nil
}

// splitTagged decodes a single-key JSON object {"Tag": payload} into its
// tag and raw payload, rejecting any object that isn't exactly one key.
func splitTagged(data []byte) (tag string, payload json.RawMessage, err error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("protocol: decoding tagged object: %w", err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("protocol: tagged object must have exactly one key, got %d", len(obj))
	}
	for k, v := range obj {
		tag, payload = k, v
	}
	return tag, payload, nil
}
