package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"clinicdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("../escape/../../etc/clinic.db")
	assert.Error(t, err)
}

func TestInsertChat_AndGetByPhone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))

	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "5511987654321", chat.Phone)
	assert.Equal(t, "5511987654321", chat.ContactName)
	assert.Equal(t, models.ChatStatusActive, chat.Status)
	assert.Equal(t, 0, chat.UnreadCount)
	assert.Nil(t, chat.LastInteractionAt)
}

func TestInsertChat_ConflictIsNoOp(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "Maria", models.ChatStatusActive))
	// A concurrent first-contact event for the same phone must not fail
	// and must not overwrite the existing row.
	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))

	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.Equal(t, "Maria", chat.ContactName)
}

func TestGetChatByPhone_Missing(t *testing.T) {
	db := setupTestDB(t)

	chat, err := db.GetChatByPhone(context.Background(), "5511900000000")
	require.NoError(t, err)
	assert.Nil(t, chat)
}

func TestUpdateChatName(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	require.NoError(t, db.UpdateChatName(ctx, chat.ID, "Maria"))

	updated, err := db.GetChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", updated.ContactName)
}

func TestUpdateChatProfilePic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	require.NoError(t, db.UpdateChatProfilePic(ctx, chat.ID, "https://cdn.example.com/pic.jpg"))

	updated, err := db.GetChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", updated.ProfilePic)
}

func TestInsertMessage_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	msg := &models.Message{
		ChatID:     chat.ID,
		Phone:      "5511987654321",
		Content:    "Olá",
		Sender:     models.SenderCustomer,
		Type:       models.TypeText,
		ExternalID: "MSG1",
	}

	inserted, err := db.InsertMessage(ctx, msg)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Replay: same external id is a silent no-op, not an error.
	inserted, err = db.InsertMessage(ctx, msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := db.CountMessagesByChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetMessageByExternalID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	_, err = db.InsertMessage(ctx, &models.Message{
		ChatID:     chat.ID,
		Phone:      "5511987654321",
		Content:    "Olá",
		Sender:     models.SenderCustomer,
		Type:       models.TypeText,
		ExternalID: "MSG1",
	})
	require.NoError(t, err)

	msg, err := db.GetMessageByExternalID(ctx, "MSG1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "Olá", msg.Content)
	assert.Equal(t, models.SenderCustomer, msg.Sender)
	assert.Empty(t, msg.Status, "inbound messages carry no status")

	missing, err := db.GetMessageByExternalID(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertMessage_OutboundStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	_, err = db.InsertMessage(ctx, &models.Message{
		ChatID:     chat.ID,
		Phone:      "5511987654321",
		Content:    "Retorno confirmado",
		Sender:     models.SenderHumanAgent,
		Type:       models.TypeText,
		ExternalID: "MSG2",
		Status:     string(models.MessageStatusSent),
	})
	require.NoError(t, err)

	msg, err := db.GetMessageByExternalID(ctx, "MSG2")
	require.NoError(t, err)
	assert.Equal(t, "sent", msg.Status)
}

func TestApplySummaryPatch_FullUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	err = db.ApplySummaryPatch(ctx, chat, models.ChatSummaryPatch{
		IncrementUnread:   true,
		UpdatePreview:     true,
		LastMessage:       "Olá",
		LastMessageType:   "text",
		LastMessageSender: "CUSTOMER",
		LastInteractionAt: at,
	})
	require.NoError(t, err)

	updated, err := db.GetChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UnreadCount)
	assert.Equal(t, "Olá", updated.LastMessage)
	assert.Equal(t, "text", updated.LastMessageType)
	assert.Equal(t, "CUSTOMER", updated.LastMessageSender)
	require.NotNil(t, updated.LastInteractionAt)
	assert.True(t, at.Equal(updated.LastInteractionAt.UTC()))
}

func TestApplySummaryPatch_UnreadOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	require.NoError(t, db.ApplySummaryPatch(ctx, chat, models.ChatSummaryPatch{
		IncrementUnread: true,
		UpdatePreview:   true,
		LastMessage:     "newer",
		LastMessageType: "text",
	}))

	chat, err = db.GetChatByID(ctx, chat.ID)
	require.NoError(t, err)

	// A late-arriving older message increments unread but keeps the preview.
	require.NoError(t, db.ApplySummaryPatch(ctx, chat, models.ChatSummaryPatch{
		IncrementUnread: true,
		UpdatePreview:   false,
		LastMessage:     "older",
	}))

	updated, err := db.GetChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.UnreadCount)
	assert.Equal(t, "newer", updated.LastMessage)
}

func TestApplySummaryPatch_NothingToDo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	require.NoError(t, db.ApplySummaryPatch(ctx, chat, models.ChatSummaryPatch{}))

	updated, err := db.GetChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UnreadCount)
	assert.Empty(t, updated.LastMessage)
}

func TestCleanupOldMessages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertChat(ctx, "5511987654321", "5511987654321", models.ChatStatusActive))
	chat, err := db.GetChatByPhone(ctx, "5511987654321")
	require.NoError(t, err)

	_, err = db.InsertMessage(ctx, &models.Message{
		ChatID:     chat.ID,
		Phone:      "5511987654321",
		Content:    "recent",
		Sender:     models.SenderCustomer,
		Type:       models.TypeText,
		ExternalID: "MSG1",
	})
	require.NoError(t, err)

	require.NoError(t, db.CleanupOldMessages(30))

	count, err := db.CountMessagesByChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "recent messages survive cleanup")
}
