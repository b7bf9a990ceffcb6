package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	apperrors "clinicdesk/internal/errors"
	"clinicdesk/internal/metrics"
	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"
	"clinicdesk/pkg/directory"
	"clinicdesk/pkg/storage"

	"github.com/sirupsen/logrus"
)

// Acquirer turns the transient media reference in a webhook event into a
// durable public URL: probe the event for inline base64 content, fall back
// to fetching through the directory service, then upload to the storage
// bucket. A failure anywhere yields an empty URL, never a failed message.
type Acquirer struct {
	directory directory.Client
	storage   storage.Client
	logger    *logrus.Logger
	now       func() time.Time
}

func NewAcquirer(dir directory.Client, store storage.Client, logger *logrus.Logger) *Acquirer {
	return &Acquirer{
		directory: dir,
		storage:   store,
		logger:    logger,
		now:       time.Now,
	}
}

// Acquire returns the public URL for the event's media, or "" when the
// event has no media or acquisition is not possible.
func (a *Acquirer) Acquire(ctx context.Context, event *models.IncomingWebhookEvent) (string, error) {
	part := mediaPart(&event.Message)
	encoded := inlineBase64(part, event)
	mimetype := ""
	fileName := ""
	if part != nil {
		mimetype = part.Mimetype
		fileName = part.FileName
	}

	if encoded == "" {
		if part == nil && event.Base64 == "" {
			return "", nil
		}

		payload, err := a.fetchRemote(ctx, event)
		if err != nil {
			return "", err
		}
		encoded = stripDataURL(payload.Base64)
		if mimetype == "" {
			mimetype = payload.Mimetype
		}
		if fileName == "" {
			fileName = payload.FileName
		}
	}

	if encoded == "" {
		return "", apperrors.New(apperrors.ErrCodeMediaAcquisition, "media content is empty")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeMediaAcquisition, "failed to decode media content")
	}

	contentType := normalizeMimetype(mimetype)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if !a.storage.HasCredentials() {
		a.logger.Debug("Storage credentials not configured, skipping media upload")
		return "", nil
	}

	if fileName == "" {
		fileName = event.Key.ID
	}
	objectName := ObjectName(a.now(), fileName, contentType)

	url, err := a.storage.Upload(ctx, objectName, data, contentType)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeMediaAcquisition, "failed to upload media")
	}

	metrics.IncrementCounter("media_acquired_total", map[string]string{
		"content_type": contentType,
	}, "Media payloads uploaded to storage")

	a.logger.WithFields(logrus.Fields{
		"message_id":   privacy.MaskMessageID(event.Key.ID),
		"content_type": contentType,
		"size_bytes":   len(data),
	}).Info("Media uploaded")

	return url, nil
}

// fetchRemote pulls the media content through the directory service. This
// is a single attempt: the payload can be large and a failed fetch only
// costs a preview, not the message.
func (a *Acquirer) fetchRemote(ctx context.Context, event *models.IncomingWebhookEvent) (*directory.MediaPayload, error) {
	if !a.directory.HasCredentials() {
		return nil, apperrors.New(apperrors.ErrCodeMediaAcquisition, "directory credentials not configured")
	}
	if event.Key.RemoteJID == "" || event.Key.ID == "" {
		return nil, apperrors.New(apperrors.ErrCodeMediaAcquisition, "event lacks the key fields needed for a remote fetch")
	}

	payload, err := a.directory.FetchMediaBase64(ctx, event.Key.RemoteJID, event.Key.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMediaAcquisition, "remote media fetch failed")
	}
	return payload, nil
}

// mediaPart probes the nested message for its media sub-object in a fixed
// order so mixed payloads classify deterministically.
func mediaPart(content *models.MessageContent) *models.MediaMessage {
	switch {
	case content.ImageMessage != nil:
		return content.ImageMessage
	case content.VideoMessage != nil:
		return content.VideoMessage
	case content.StickerMessage != nil:
		return content.StickerMessage
	case content.AudioMessage != nil:
		return content.AudioMessage
	case content.DocumentMessage != nil:
		return content.DocumentMessage
	}
	return nil
}

// inlineBase64 returns base64 content already present on the event, trying
// the media sub-object first and the body-level field second.
func inlineBase64(part *models.MediaMessage, event *models.IncomingWebhookEvent) string {
	if part != nil && part.Base64 != "" {
		return stripDataURL(part.Base64)
	}
	return stripDataURL(event.Base64)
}

// stripDataURL removes a "data:<mime>;base64," prefix if present.
func stripDataURL(encoded string) string {
	if !strings.HasPrefix(encoded, "data:") {
		return encoded
	}
	if i := strings.Index(encoded, "base64,"); i >= 0 {
		return encoded[i+len("base64,"):]
	}
	return encoded
}
