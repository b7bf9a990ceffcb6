package service

import (
	"context"
	"time"

	"clinicdesk/internal/metrics"
	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"

	"github.com/sirupsen/logrus"
)

// MessageStore is the message persistence surface the writer needs.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) (bool, error)
	GetChatByID(ctx context.Context, id int64) (*models.Chat, error)
	ApplySummaryPatch(ctx context.Context, chat *models.Chat, patch models.ChatSummaryPatch) error
}

// MessageWriter durably records the message and keeps the chat summary
// consistent under concurrent, possibly out-of-order delivery. Everything
// here is fail-soft: after the session manager has run, no persistence
// problem is allowed to propagate back to the webhook transport.
type MessageWriter struct {
	store  MessageStore
	logger *logrus.Logger

	// now anchors the ordering guard when the event carries no usable
	// timestamp. Tests pin it.
	now func() time.Time
}

func NewMessageWriter(store MessageStore, logger *logrus.Logger) *MessageWriter {
	return &MessageWriter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (w *MessageWriter) Name() string {
	return "message_writer"
}

func (w *MessageWriter) Run(ctx context.Context, state *models.PipelineState) (*models.StageDelta, error) {
	event := state.RawEvent

	// Reactions are never persisted and must not touch the summary.
	if state.MessageType == models.TypeReaction {
		metrics.IncrementCounter("messages_skipped_total", map[string]string{
			"reason": "reaction",
		}, "Events skipped before persistence")
		return &models.StageDelta{ShouldContinue: models.Bool(false)}, nil
	}

	sender := models.SenderCustomer
	status := ""
	if event.Key.FromMe {
		sender = models.SenderHumanAgent
		// Only outbound rows carry a status; "sent" on an inbound row
		// violates a downstream constraint.
		status = string(models.MessageStatusSent)
	}

	msg := &models.Message{
		ChatID:     state.ChatID,
		Phone:      state.Phone,
		Content:    state.MessageContent,
		Sender:     sender,
		Type:       state.MessageType,
		MediaURL:   state.MediaURL,
		ExternalID: event.Key.ID,
		Status:     status,
	}

	inserted, err := w.store.InsertMessage(ctx, msg)
	if err != nil {
		// Fail-soft: log and end processing without touching the summary.
		w.logger.WithFields(logrus.Fields{
			"chat_id":    state.ChatID,
			"message_id": privacy.MaskMessageID(event.Key.ID),
		}).WithError(err).Error("Failed to persist message")
		metrics.IncrementCounter("messages_failed_total", nil, "Message insert failures")
		return &models.StageDelta{ShouldContinue: models.Bool(false)}, nil
	}
	if !inserted {
		// Duplicate delivery: the idempotency contract is zero additional
		// side effects, so the summary stays untouched too.
		w.logger.WithFields(logrus.Fields{
			"chat_id":    state.ChatID,
			"message_id": privacy.MaskMessageID(event.Key.ID),
		}).Debug("Duplicate delivery ignored")
		metrics.IncrementCounter("messages_duplicate_total", nil, "Replayed deliveries ignored")
		return &models.StageDelta{ShouldContinue: models.Bool(false)}, nil
	}

	metrics.IncrementCounter("messages_persisted_total", map[string]string{
		"type":   string(state.MessageType),
		"sender": string(sender),
	}, "Messages persisted")

	w.updateSummary(ctx, state, sender, status)

	return nil, nil
}

// updateSummary applies the unread increment and, when delivery order
// allows, the preview overwrite. A late-arriving but chronologically older
// message must never clobber a newer preview, so the preview fields are
// guarded by the event timestamp while the unread increment is not: the
// unique external id already guarantees at most one increment per message.
func (w *MessageWriter) updateSummary(ctx context.Context, state *models.PipelineState, sender models.MessageSender, status string) {
	chat, err := w.store.GetChatByID(ctx, state.ChatID)
	if err != nil || chat == nil {
		w.logger.WithError(err).WithField("chat_id", state.ChatID).Error("Failed to read chat for summary update")
		return
	}

	msgTime := state.RawEvent.MessageTimestamp.Time()
	if msgTime.IsZero() {
		msgTime = w.now().UTC()
	}

	updatePreview := chat.LastInteractionAt == nil || !msgTime.Before(*chat.LastInteractionAt)

	patch := models.ChatSummaryPatch{
		IncrementUnread:   !state.RawEvent.Key.FromMe,
		UpdatePreview:     updatePreview,
		LastMessage:       PreviewLabel(state.MessageType, state.MessageContent),
		LastMessageType:   string(state.MessageType),
		LastMessageSender: string(sender),
		LastMessageStatus: status,
		LastInteractionAt: msgTime,
	}

	if err := w.store.ApplySummaryPatch(ctx, chat, patch); err != nil {
		w.logger.WithError(err).WithField("chat_id", chat.ID).Error("Failed to update chat summary")
	}
}
