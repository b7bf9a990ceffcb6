package service

import (
	"context"

	"clinicdesk/internal/models"
	"clinicdesk/pkg/directory"

	"github.com/stretchr/testify/mock"
)

type mockDirectoryClient struct {
	mock.Mock
}

func (m *mockDirectoryClient) GetContactByID(ctx context.Context, jid string) (*directory.Contact, error) {
	args := m.Called(ctx, jid)
	if c := args.Get(0); c != nil {
		return c.(*directory.Contact), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectoryClient) FindContacts(ctx context.Context, jid string) ([]directory.Contact, error) {
	args := m.Called(ctx, jid)
	if c := args.Get(0); c != nil {
		return c.([]directory.Contact), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectoryClient) FetchProfilePictureURL(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *mockDirectoryClient) FetchMediaBase64(ctx context.Context, remoteJID, messageID string) (*directory.MediaPayload, error) {
	args := m.Called(ctx, remoteJID, messageID)
	if p := args.Get(0); p != nil {
		return p.(*directory.MediaPayload), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDirectoryClient) HasCredentials() bool {
	return m.Called().Bool(0)
}

type mockStorageClient struct {
	mock.Mock
}

func (m *mockStorageClient) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, objectPath, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockStorageClient) PublicURL(objectPath string) string {
	return m.Called(objectPath).String(0)
}

func (m *mockStorageClient) HasCredentials() bool {
	return m.Called().Bool(0)
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) GetChatByPhone(ctx context.Context, phone string) (*models.Chat, error) {
	args := m.Called(ctx, phone)
	if c := args.Get(0); c != nil {
		return c.(*models.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionStore) InsertChat(ctx context.Context, phone, contactName string, status models.ChatStatus) error {
	return m.Called(ctx, phone, contactName, status).Error(0)
}

func (m *mockSessionStore) UpdateChatName(ctx context.Context, id int64, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockSessionStore) UpdateChatProfilePic(ctx context.Context, id int64, url string) error {
	return m.Called(ctx, id, url).Error(0)
}

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) InsertMessage(ctx context.Context, msg *models.Message) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *mockMessageStore) GetChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Chat), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessageStore) ApplySummaryPatch(ctx context.Context, chat *models.Chat, patch models.ChatSummaryPatch) error {
	return m.Called(ctx, chat, patch).Error(0)
}
