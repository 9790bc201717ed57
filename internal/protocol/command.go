package protocol

import (
	"encoding/json"
	"fmt"
)

// CommandKind tags which variant a decoded Command carries.
type CommandKind int

const (
	CommandCreateChannel CommandKind = iota
	CommandSubscribe
	CommandNotifyChannel
)

// Command is the inbound client->server tagged variant from spec.md §3:
// CreateChannel(ChannelId) | Subscribe(ChannelId) |
// NotifyChannel(ChannelId, ChannelMessage).
type Command struct {
	Kind      CommandKind
	ChannelID string
	Message   ChannelMessage
}

func NewCreateChannel(id string) Command { return Command{Kind: CommandCreateChannel, ChannelID: id} }
func NewSubscribe(id string) Command     { return Command{Kind: CommandSubscribe, ChannelID: id} }
func NewNotifyChannel(id string, msg ChannelMessage) Command {
	return Command{Kind: CommandNotifyChannel, ChannelID: id, Message: msg}
}

func (c Command) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CommandCreateChannel:
		return marshalTagged("CreateChannel", c.ChannelID)
	case CommandSubscribe:
		return marshalTagged("Subscribe", c.ChannelID)
	case CommandNotifyChannel:
		return marshalTagged("NotifyChannel", []interface{}{c.ChannelID, c.Message})
	default:
		return nil, fmt.Errorf("protocol: unknown command kind %d", c.Kind)
	}
}

func (c *Command) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return err
	}
	switch tag {
	case "CreateChannel":
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return fmt.Errorf("protocol: decoding CreateChannel payload: %w", err)
		}
		*c = NewCreateChannel(id)
	case "Subscribe":
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return fmt.Errorf("protocol: decoding Subscribe payload: %w", err)
		}
		*c = NewSubscribe(id)
	case "NotifyChannel":
		var tuple [2]json.RawMessage
		if err := json.Unmarshal(payload, &tuple); err != nil {
			return fmt.Errorf("protocol: decoding NotifyChannel payload: %w", err)
		}
		var id string
		if err := json.Unmarshal(tuple[0], &id); err != nil {
			return fmt.Errorf("protocol: decoding NotifyChannel channel id: %w", err)
		}
		var msg ChannelMessage
		if err := json.Unmarshal(tuple[1], &msg); err != nil {
			return fmt.Errorf("protocol: decoding NotifyChannel message: %w", err)
		}
		*c = NewNotifyChannel(id, msg)
	default:
		return fmt.Errorf("protocol: unknown command variant %q", tag)
	}
	return nil
}

// DecodeCommand parses one JSON text frame into a Command.
func DecodeCommand(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, err
	}
	return c, nil
}
