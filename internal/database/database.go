package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"clinicdesk/internal/migrations"
	"clinicdesk/internal/models"
	"clinicdesk/internal/security"

	sqlite3 "github.com/mattn/go-sqlite3"
)

type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := NewEncryptor()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Chat operations

// InsertChat creates a chat row for the phone, doing nothing if one already
// exists. Callers re-read after inserting so that two concurrent
// first-contact events for the same phone converge on a single row.
func (d *Database) InsertChat(ctx context.Context, phone, contactName string, status models.ChatStatus) error {
	encryptedPhone, err := d.encryptor.EncryptForLookupIfEnabled(phone)
	if err != nil {
		return fmt.Errorf("failed to encrypt phone: %w", err)
	}
	encryptedName, err := d.encryptor.EncryptIfEnabled(contactName)
	if err != nil {
		return fmt.Errorf("failed to encrypt contact name: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, insertChatQuery, encryptedPhone, encryptedName, status); err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

// GetChatByPhone retrieves a chat by its natural key. Returns nil, nil when
// no chat exists for the phone.
func (d *Database) GetChatByPhone(ctx context.Context, phone string) (*models.Chat, error) {
	encryptedPhone, err := d.encryptor.EncryptForLookupIfEnabled(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}
	return d.scanChat(d.db.QueryRowContext(ctx, selectChatByPhoneQuery, encryptedPhone))
}

// GetChatByID retrieves a chat by row id. Returns nil, nil when missing.
func (d *Database) GetChatByID(ctx context.Context, id int64) (*models.Chat, error) {
	return d.scanChat(d.db.QueryRowContext(ctx, selectChatByIDQuery, id))
}

func (d *Database) scanChat(row *sql.Row) (*models.Chat, error) {
	var chat models.Chat
	var encryptedPhone, encryptedName, encryptedLastMessage string
	var lastInteraction sql.NullTime

	err := row.Scan(
		&chat.ID,
		&encryptedPhone,
		&encryptedName,
		&chat.Status,
		&chat.ProfilePic,
		&chat.UnreadCount,
		&encryptedLastMessage,
		&chat.LastMessageType,
		&chat.LastMessageSender,
		&chat.LastMessageStatus,
		&lastInteraction,
		&chat.IsAIPaused,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chat: %w", err)
	}

	if lastInteraction.Valid {
		t := lastInteraction.Time
		chat.LastInteractionAt = &t
	}

	chat.Phone, err = d.encryptor.DecryptIfEnabled(encryptedPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone: %w", err)
	}
	chat.ContactName, err = d.encryptor.DecryptIfEnabled(encryptedName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt contact name: %w", err)
	}
	chat.LastMessage, err = d.encryptor.DecryptIfEnabled(encryptedLastMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt last message: %w", err)
	}

	return &chat, nil
}

// UpdateChatName overwrites the chat's contact name.
func (d *Database) UpdateChatName(ctx context.Context, id int64, name string) error {
	encryptedName, err := d.encryptor.EncryptIfEnabled(name)
	if err != nil {
		return fmt.Errorf("failed to encrypt contact name: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, updateChatNameQuery, encryptedName, id); err != nil {
		return fmt.Errorf("failed to update chat name: %w", err)
	}
	return nil
}

// UpdateChatProfilePic sets the chat's profile picture URL.
func (d *Database) UpdateChatProfilePic(ctx context.Context, id int64, url string) error {
	if _, err := d.db.ExecContext(ctx, updateChatProfilePicQuery, url, id); err != nil {
		return fmt.Errorf("failed to update profile picture: %w", err)
	}
	return nil
}

// ApplySummaryPatch applies the computed summary mutation in one update.
// The caller has already read the chat and decided whether the preview
// fields may be overwritten.
func (d *Database) ApplySummaryPatch(ctx context.Context, chat *models.Chat, patch models.ChatSummaryPatch) error {
	unread := chat.UnreadCount
	if patch.IncrementUnread {
		unread++
	}

	if !patch.UpdatePreview {
		if !patch.IncrementUnread {
			return nil
		}
		if _, err := d.db.ExecContext(ctx, updateChatUnreadQuery, unread, chat.ID); err != nil {
			return fmt.Errorf("failed to update unread count: %w", err)
		}
		return nil
	}

	encryptedLastMessage, err := d.encryptor.EncryptIfEnabled(patch.LastMessage)
	if err != nil {
		return fmt.Errorf("failed to encrypt last message: %w", err)
	}

	_, err = d.db.ExecContext(ctx, updateChatSummaryQuery,
		unread,
		encryptedLastMessage,
		patch.LastMessageType,
		patch.LastMessageSender,
		patch.LastMessageStatus,
		patch.LastInteractionAt,
		chat.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat summary: %w", err)
	}
	return nil
}

// Message operations

// InsertMessage appends a message row. A duplicate external id is reported
// as inserted=false with a nil error; replays must be a no-op, not a
// failure.
func (d *Database) InsertMessage(ctx context.Context, msg *models.Message) (bool, error) {
	encryptedPhone, err := d.encryptor.EncryptForLookupIfEnabled(msg.Phone)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt phone: %w", err)
	}
	encryptedContent, err := d.encryptor.EncryptIfEnabled(msg.Content)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt content: %w", err)
	}
	encryptedExternalID, err := d.encryptor.EncryptForLookupIfEnabled(msg.ExternalID)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt external id: %w", err)
	}

	var status interface{}
	if msg.Status != "" {
		status = msg.Status
	}

	_, err = d.db.ExecContext(ctx, insertMessageQuery,
		msg.ChatID,
		encryptedPhone,
		encryptedContent,
		msg.Sender,
		msg.Type,
		msg.MediaURL,
		encryptedExternalID,
		status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert message: %w", err)
	}
	return true, nil
}

// GetMessageByExternalID retrieves a message by provider id. Returns
// nil, nil when missing.
func (d *Database) GetMessageByExternalID(ctx context.Context, externalID string) (*models.Message, error) {
	encryptedExternalID, err := d.encryptor.EncryptForLookupIfEnabled(externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt external id: %w", err)
	}

	var msg models.Message
	var encryptedPhone, encryptedContent, encryptedStoredID string

	err = d.db.QueryRowContext(ctx, selectMessageByExternalIDQuery, encryptedExternalID).Scan(
		&msg.ID,
		&msg.ChatID,
		&encryptedPhone,
		&encryptedContent,
		&msg.Sender,
		&msg.Type,
		&msg.MediaURL,
		&encryptedStoredID,
		&msg.Status,
		&msg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	msg.Phone, err = d.encryptor.DecryptIfEnabled(encryptedPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone: %w", err)
	}
	msg.Content, err = d.encryptor.DecryptIfEnabled(encryptedContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", err)
	}
	msg.ExternalID, err = d.encryptor.DecryptIfEnabled(encryptedStoredID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt external id: %w", err)
	}

	return &msg, nil
}

// CountMessagesByChat returns the number of persisted messages for a chat.
func (d *Database) CountMessagesByChat(ctx context.Context, chatID int64) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, countMessagesByChatQuery, chatID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// CleanupOldMessages removes messages older than the retention period.
func (d *Database) CleanupOldMessages(retentionDays int) error {
	if _, err := d.db.Exec(deleteOldMessagesQuery, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old messages: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
