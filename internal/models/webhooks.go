package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// MessageKey identifies a provider message. The key id is globally unique
// and anchors idempotent persistence.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// UnixTimestamp accepts the provider's message timestamp, which arrives
// either as a JSON number or as a quoted string of seconds.
type UnixTimestamp int64

func (t *UnixTimestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Malformed timestamps degrade to zero rather than failing the event.
		*t = 0
		return nil
	}
	*t = UnixTimestamp(v)
	return nil
}

// Time converts the timestamp to UTC time. A zero timestamp yields the
// zero time, which callers treat as "unparseable".
func (t UnixTimestamp) Time() time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.Unix(int64(t), 0).UTC()
}

// ExtendedTextMessage carries quoted or link-preview text content.
type ExtendedTextMessage struct {
	Text string `json:"text,omitempty"`
}

// MediaMessage is the provider's nested media sub-object. Shapes vary by
// provider version, so every field is optional.
type MediaMessage struct {
	Caption  string `json:"caption,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
	URL      string `json:"url,omitempty"`
	Base64   string `json:"base64,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// MessageContent is the provider-shaped nested message payload.
type MessageContent struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage        `json:"imageMessage,omitempty"`
	VideoMessage        *MediaMessage        `json:"videoMessage,omitempty"`
	AudioMessage        *MediaMessage        `json:"audioMessage,omitempty"`
	StickerMessage      *MediaMessage        `json:"stickerMessage,omitempty"`
	DocumentMessage     *MediaMessage        `json:"documentMessage,omitempty"`
}

// IncomingWebhookEvent is one inbound event from the messaging provider.
// It is ephemeral and never stored verbatim.
type IncomingWebhookEvent struct {
	Key              MessageKey     `json:"key"`
	PushName         string         `json:"pushName,omitempty"`
	MessageType      string         `json:"messageType"`
	Message          MessageContent `json:"message"`
	MessageTimestamp UnixTimestamp  `json:"messageTimestamp"`
	Base64           string         `json:"base64,omitempty"`
}

// ParseWebhookEvent decodes a raw webhook body defensively. Unknown fields
// are ignored; only a structurally invalid body is an error.
func ParseWebhookEvent(data []byte) (*IncomingWebhookEvent, error) {
	var event IncomingWebhookEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
