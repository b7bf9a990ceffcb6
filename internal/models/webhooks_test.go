package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEvent(t *testing.T) {
	body := []byte(`{
		"key": {"remoteJid": "5511987654321@s.whatsapp.net", "fromMe": false, "id": "MSG1"},
		"pushName": "Maria",
		"messageType": "conversation",
		"message": {"conversation": "Olá"},
		"messageTimestamp": 1756200000
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "5511987654321@s.whatsapp.net", event.Key.RemoteJID)
	assert.False(t, event.Key.FromMe)
	assert.Equal(t, "MSG1", event.Key.ID)
	assert.Equal(t, "Maria", event.PushName)
	assert.Equal(t, "Olá", event.Message.Conversation)
	assert.Equal(t, int64(1756200000), int64(event.MessageTimestamp))
}

func TestParseWebhookEvent_StringTimestamp(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"key": {"id": "MSG1"}, "messageTimestamp": "1756200000"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1756200000), int64(event.MessageTimestamp))
}

func TestParseWebhookEvent_MalformedTimestampDegrades(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"key": {"id": "MSG1"}, "messageTimestamp": "not-a-number"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), int64(event.MessageTimestamp))
	assert.True(t, event.MessageTimestamp.Time().IsZero())
}

func TestParseWebhookEvent_UnknownFieldsIgnored(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"key": {"id": "MSG1"}, "someFutureField": {"x": 1}}`))
	require.NoError(t, err)
	assert.Equal(t, "MSG1", event.Key.ID)
}

func TestParseWebhookEvent_Invalid(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestUnixTimestamp_Time(t *testing.T) {
	ts := UnixTimestamp(1756200000)
	assert.Equal(t, time.Unix(1756200000, 0).UTC(), ts.Time())
}

func TestStageDelta_Apply(t *testing.T) {
	event := &IncomingWebhookEvent{Key: MessageKey{RemoteJID: "a@lid", ID: "MSG1"}}
	state := NewPipelineState(event)

	assert.True(t, state.ShouldContinue)
	assert.Equal(t, StrategyDirect, state.ResolverStrategy)
	assert.Equal(t, "a@lid", state.SourceJID)

	state.Apply(&StageDelta{
		Phone:            String("5511987654321"),
		ResolvedJID:      String("5511987654321@s.whatsapp.net"),
		ResolverStrategy: Strategy(StrategyDirectory),
	})

	assert.Equal(t, "5511987654321", state.Phone)
	assert.Equal(t, "5511987654321@s.whatsapp.net", state.EffectiveJID())
	assert.Equal(t, StrategyDirectory, state.ResolverStrategy)

	// A nil field keeps the previous value.
	state.Apply(&StageDelta{ChatID: Int64(7)})
	assert.Equal(t, "5511987654321", state.Phone)
	assert.Equal(t, int64(7), state.ChatID)

	state.Apply(nil)
	assert.Equal(t, int64(7), state.ChatID)
}
