package service

import (
	"context"
	"strings"
	"time"

	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"
	"clinicdesk/pkg/media"

	"github.com/sirupsen/logrus"
)

// placeholderCaptions stand in for media messages that carry no caption.
// They double as the chat preview label for the same types.
var placeholderCaptions = map[models.MessageType]string{
	models.TypeAudio:    "🎵 Áudio recebido",
	models.TypeImage:    "📷 Imagem recebida",
	models.TypeVideo:    "🎥 Vídeo recebido",
	models.TypeSticker:  "💟 Figurinha recebida",
	models.TypeDocument: "📄 Documento recebido",
}

// PreviewLabel returns the chat-list preview for a message: the localized
// media label for non-text types, the trimmed content otherwise.
func PreviewLabel(msgType models.MessageType, content string) string {
	if label, ok := placeholderCaptions[msgType]; ok {
		return label
	}
	return strings.TrimSpace(content)
}

// Normalizer flattens the provider-shaped event into the canonical fields
// the rest of the pipeline works with: bare phone, display name, text
// content, message type and (for media) a durable URL. It is defensive by
// construction; missing or oddly shaped nested fields degrade to empty
// values instead of failing the event.
type Normalizer struct {
	acquirer *media.Acquirer
	logger   *logrus.Logger
}

func NewNormalizer(acquirer *media.Acquirer, logger *logrus.Logger) *Normalizer {
	return &Normalizer{
		acquirer: acquirer,
		logger:   logger,
	}
}

func (n *Normalizer) Name() string {
	return "normalizer"
}

func (n *Normalizer) Run(ctx context.Context, state *models.PipelineState) (*models.StageDelta, error) {
	event := state.RawEvent

	phone := bareDigits(state.EffectiveJID())
	content := probeTextContent(&event.Message)
	msgType := classify(event)

	delta := &models.StageDelta{
		Phone:       models.String(phone),
		ContactName: models.String(contactNameFor(event, phone)),
		MessageType: models.Type(msgType),
	}

	if ts := event.MessageTimestamp.Time(); !ts.IsZero() {
		delta.MessageTimestampISO = models.String(ts.Format(time.RFC3339))
	}

	switch msgType {
	case models.TypeText, models.TypeReaction:
		delta.MessageContent = models.String(content)
		if url := inlineMediaURL(&event.Message); url != "" {
			// Rare provider quirk: a nominally text message carrying a
			// direct media URL. Taken as-is, no acquisition.
			delta.MediaURL = models.String(url)
		}
	default:
		if content == "" {
			content = placeholderCaptions[msgType]
		}
		delta.MessageContent = models.String(content)

		url, err := n.acquirer.Acquire(ctx, event)
		if err != nil {
			n.logger.WithFields(logrus.Fields{
				"message_id": privacy.MaskMessageID(event.Key.ID),
				"type":       msgType,
			}).WithError(err).Warn("Media acquisition failed, persisting without media URL")
		}
		delta.MediaURL = models.String(url)
	}

	return delta, nil
}

// bareDigits strips the @domain suffix and every non-digit character from a
// provider address.
func bareDigits(jid string) string {
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		jid = jid[:at]
	}
	var b strings.Builder
	for _, r := range jid {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// probeTextContent tries the known text-bearing fields in a fixed order.
func probeTextContent(content *models.MessageContent) string {
	if content.Conversation != "" {
		return content.Conversation
	}
	if content.ExtendedTextMessage != nil && content.ExtendedTextMessage.Text != "" {
		return content.ExtendedTextMessage.Text
	}
	if content.ImageMessage != nil && content.ImageMessage.Caption != "" {
		return content.ImageMessage.Caption
	}
	if content.VideoMessage != nil && content.VideoMessage.Caption != "" {
		return content.VideoMessage.Caption
	}
	return ""
}

// classify maps the provider's messageType to the canonical type, falling
// back to the nested payload when the field is absent or unknown.
func classify(event *models.IncomingWebhookEvent) models.MessageType {
	switch event.MessageType {
	case "conversation", "extendedTextMessage":
		return models.TypeText
	case "audioMessage":
		return models.TypeAudio
	case "imageMessage":
		return models.TypeImage
	case "videoMessage":
		return models.TypeVideo
	case "stickerMessage":
		return models.TypeSticker
	case "documentMessage":
		return models.TypeDocument
	case "reactionMessage":
		return models.TypeReaction
	}

	msg := &event.Message
	switch {
	case msg.ImageMessage != nil:
		return models.TypeImage
	case msg.VideoMessage != nil:
		return models.TypeVideo
	case msg.AudioMessage != nil:
		return models.TypeAudio
	case msg.StickerMessage != nil:
		return models.TypeSticker
	case msg.DocumentMessage != nil:
		return models.TypeDocument
	}
	return models.TypeText
}

// inlineMediaURL returns a direct URL the provider inlined on the payload.
func inlineMediaURL(content *models.MessageContent) string {
	for _, part := range []*models.MediaMessage{
		content.ImageMessage,
		content.VideoMessage,
		content.DocumentMessage,
	} {
		if part != nil && strings.HasPrefix(part.URL, "http") {
			return part.URL
		}
	}
	return ""
}

func contactNameFor(event *models.IncomingWebhookEvent, phone string) string {
	if event.PushName != "" {
		return event.PushName
	}
	return phone
}
