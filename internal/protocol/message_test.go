package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelMessageRoundTripText(t *testing.T) {
	cases := []string{"hello", "", "unicode: 日本語 🎉"}
	for _, s := range cases {
		msg := NewTextMessage(s)
		data, err := json.Marshal(msg)
		require.NoError(t, err)

		var decoded ChannelMessage
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, msg.Equal(decoded))
	}
}

func TestChannelMessageRoundTripJSON(t *testing.T) {
	cases := []string{`{"k":1}`, `{"nested":{"arr":[1,2,3],"s":"日本語"}}`, `null`, `42`, `[]`}
	for _, raw := range cases {
		msg := NewJSONMessage(json.RawMessage(raw))
		data, err := json.Marshal(msg)
		require.NoError(t, err)

		var decoded ChannelMessage
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.True(t, msg.Equal(decoded))
	}
}

func TestChannelMessageWireExactExamples(t *testing.T) {
	textMsg := NewTextMessage("hi")
	data, err := json.Marshal(textMsg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Text":"hi"}`, string(data))

	jsonMsg := NewJSONMessage(json.RawMessage(`{"k":1}`))
	data, err = json.Marshal(jsonMsg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Json":{"k":1}}`, string(data))
}

func TestSubscribeCommandWireExact(t *testing.T) {
	data, err := json.Marshal(NewSubscribe("quotes"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Subscribe":"quotes"}`, string(data))
}

func TestNotifyChannelCommandWireExact(t *testing.T) {
	cmd := NewNotifyChannel("quotes", NewTextMessage("hello"))
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"NotifyChannel":["quotes",{"Text":"hello"}]}`, string(data))
}

func TestChannelMessageEventWireExact(t *testing.T) {
	event := NewChannelMessageEvent("quotes", NewTextMessage("hello"))
	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ChannelMessage":["quotes",{"Text":"hello"}]}`, string(data))
}

func TestErrorEventWireExact(t *testing.T) {
	event := NewErrorEvent("Channel not found: quotes")
	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Error":"Channel not found: quotes"}`, string(data))
}

func TestDecodeCommandAllVariants(t *testing.T) {
	c, err := DecodeCommand([]byte(`{"CreateChannel":"c"}`))
	require.NoError(t, err)
	assert.Equal(t, CommandCreateChannel, c.Kind)
	assert.Equal(t, "c", c.ChannelID)

	c, err = DecodeCommand([]byte(`{"Subscribe":"c"}`))
	require.NoError(t, err)
	assert.Equal(t, CommandSubscribe, c.Kind)

	c, err = DecodeCommand([]byte(`{"NotifyChannel":["c",{"Json":{"a":1}}]}`))
	require.NoError(t, err)
	assert.Equal(t, CommandNotifyChannel, c.Kind)
	assert.Equal(t, "c", c.ChannelID)
	assert.NotNil(t, c.Message.Json)
}

func TestDecodeCommandRejectsUnknownVariant(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"Bogus":"c"}`))
	assert.Error(t, err)
}

func TestDecodeCommandRejectsMultiKeyObject(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"Subscribe":"c","Extra":"d"}`))
	assert.Error(t, err)
}

func TestEventRoundTripAllVariants(t *testing.T) {
	events := []Event{
		NewChannelMessageEvent("c", NewTextMessage("m")),
		NewSuccessEvent("ok"),
		NewErrorEvent("bad"),
		NewTextEvent("debug"),
	}
	for _, e := range events {
		data, err := Encode(e)
		require.NoError(t, err)

		var decoded Event
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, e.Kind, decoded.Kind)
	}
}
