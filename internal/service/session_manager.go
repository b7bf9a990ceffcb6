package service

import (
	"context"
	"fmt"
	"time"

	apperrors "clinicdesk/internal/errors"
	"clinicdesk/internal/models"
	"clinicdesk/internal/privacy"
	"clinicdesk/pkg/directory"

	"github.com/sirupsen/logrus"
)

// SessionStore is the chat persistence surface the session manager needs.
type SessionStore interface {
	GetChatByPhone(ctx context.Context, phone string) (*models.Chat, error)
	InsertChat(ctx context.Context, phone, contactName string, status models.ChatStatus) error
	UpdateChatName(ctx context.Context, id int64, name string) error
	UpdateChatProfilePic(ctx context.Context, id int64, url string) error
}

// SessionManager guarantees a chat row exists for the inbound phone and
// applies the name-protection rule: a contact's stored name is written once
// and only auto-filled while it still looks like a bare phone number.
type SessionManager struct {
	store     SessionStore
	directory directory.Client
	logger    *logrus.Logger

	// runAsync detaches the profile picture enrichment from the caller.
	// Tests swap it for a synchronous runner.
	runAsync func(task func())
}

func NewSessionManager(store SessionStore, dir directory.Client, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		store:     store,
		directory: dir,
		logger:    logger,
		runAsync:  func(task func()) { go task() },
	}
}

func (s *SessionManager) Name() string {
	return "session_manager"
}

// Run is the one stage whose failure is fatal to the event: without a chat
// id nothing downstream can write.
func (s *SessionManager) Run(ctx context.Context, state *models.PipelineState) (*models.StageDelta, error) {
	event := state.RawEvent
	phone := state.Phone
	if phone == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "no phone could be derived from the sender address")
	}

	chat, err := s.store.GetChatByPhone(ctx, phone)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeChatLookup, "chat lookup failed")
	}

	if chat == nil {
		chat, err = s.createChat(ctx, phone)
		if err != nil {
			return nil, err
		}
	} else if name, updated := s.protectedName(event, chat, phone); updated {
		if err := s.store.UpdateChatName(ctx, chat.ID, name); err != nil {
			// Losing a name auto-fill is not worth losing the message.
			s.logger.WithError(err).WithField("chat_id", chat.ID).Warn("Failed to update contact name")
		} else {
			chat.ContactName = name
		}
	}

	if !event.Key.FromMe && chat.ProfilePic == "" {
		s.enrichProfilePicture(chat.ID, phone)
	}

	return &models.StageDelta{
		ChatID:      models.Int64(chat.ID),
		ContactName: models.String(chat.ContactName),
		IsAIPaused:  models.Bool(chat.IsAIPaused),
	}, nil
}

// createChat inserts the chat and re-reads it. The insert is a no-op on a
// phone conflict, so two concurrent first-contact events for the same phone
// both land on the same row. The name deliberately defaults to the phone
// itself, not the event's display name: on first contact the display name
// may belong to the device owner, not the contact.
func (s *SessionManager) createChat(ctx context.Context, phone string) (*models.Chat, error) {
	if err := s.store.InsertChat(ctx, phone, phone, models.ChatStatusActive); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeChatLookup, "chat insert failed")
	}

	chat, err := s.store.GetChatByPhone(ctx, phone)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeChatLookup, "chat re-read after insert failed")
	}
	if chat == nil {
		return nil, apperrors.New(apperrors.ErrCodeChatLookup, "chat missing after insert")
	}

	s.logger.WithField("phone", privacy.MaskPhoneNumber(phone)).Info("Chat created on first contact")
	return chat, nil
}

// protectedName decides whether the event's display name may overwrite the
// stored contact name. Write-once by default: only a name that is still
// empty or equal to the bare phone is eligible, and only for inbound
// events.
func (s *SessionManager) protectedName(event *models.IncomingWebhookEvent, chat *models.Chat, phone string) (string, bool) {
	if event.Key.FromMe || event.PushName == "" {
		return "", false
	}
	if chat.ContactName != "" && chat.ContactName != phone {
		return "", false
	}
	if event.PushName == chat.ContactName {
		return "", false
	}
	return event.PushName, true
}

// enrichProfilePicture fetches and stores the contact's picture without
// blocking the pipeline. It runs under its own context and error boundary;
// nothing here can affect the event's outcome.
func (s *SessionManager) enrichProfilePicture(chatID int64, phone string) {
	if !s.directory.HasCredentials() {
		return
	}

	s.runAsync(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("panic", fmt.Sprintf("%v", r)).Error("Profile picture enrichment panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		url, err := s.directory.FetchProfilePictureURL(ctx, phone)
		if err != nil || url == "" {
			s.logger.WithField("phone", privacy.MaskPhoneNumber(phone)).
				WithError(err).Debug("No profile picture available")
			return
		}

		if err := s.store.UpdateChatProfilePic(ctx, chatID, url); err != nil {
			s.logger.WithError(err).WithField("chat_id", chatID).Debug("Failed to store profile picture")
		}
	})
}
