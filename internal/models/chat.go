package models

import "time"

// ChatStatus is set once at creation; transitions are owned by the UI layer.
type ChatStatus string

const (
	ChatStatusActive ChatStatus = "ACTIVE"
)

// MessageSender distinguishes inbound customer messages from messages sent
// by clinic staff through the connected device.
type MessageSender string

const (
	SenderCustomer   MessageSender = "CUSTOMER"
	SenderHumanAgent MessageSender = "HUMAN_AGENT"
)

// MessageStatus is present only on outbound messages.
type MessageStatus string

const (
	MessageStatusSent MessageStatus = "sent"
)

// MessageType is the canonical classification of an inbound message.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypeAudio    MessageType = "audio"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
	TypeSticker  MessageType = "sticker"
	TypeDocument MessageType = "document"
	// Reactions flow through the pipeline but are never persisted.
	TypeReaction MessageType = "reaction"
)

// Chat is one conversation per phone number. Created on first inbound
// contact, mutated on every event, never deleted by the pipeline.
type Chat struct {
	ID                int64      `json:"id"`
	Phone             string     `json:"phone"`
	ContactName       string     `json:"contact_name"`
	Status            ChatStatus `json:"status"`
	ProfilePic        string     `json:"profile_pic"`
	UnreadCount       int        `json:"unread_count"`
	LastMessage       string     `json:"last_message"`
	LastMessageType   string     `json:"last_message_type"`
	LastMessageSender string     `json:"last_message_sender"`
	LastMessageStatus string     `json:"last_message_status"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
	IsAIPaused        bool       `json:"is_ai_paused"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Message is an append-only conversation event. ExternalID carries the
// provider message id and is the idempotency anchor.
type Message struct {
	ID         int64         `json:"id"`
	ChatID     int64         `json:"chat_id"`
	Phone      string        `json:"phone"`
	Content    string        `json:"content"`
	Sender     MessageSender `json:"sender"`
	Type       MessageType   `json:"type"`
	MediaURL   string        `json:"media_url,omitempty"`
	ExternalID string        `json:"external_id"`
	Status     string        `json:"status,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ChatSummaryPatch is the single-update mutation applied to a chat after a
// message is persisted. Preview fields are only written when the event's
// timestamp is not older than the chat's last interaction; the unread
// increment is unconditional for inbound messages.
type ChatSummaryPatch struct {
	IncrementUnread   bool
	UpdatePreview     bool
	LastMessage       string
	LastMessageType   string
	LastMessageSender string
	LastMessageStatus string
	LastInteractionAt time.Time
}
