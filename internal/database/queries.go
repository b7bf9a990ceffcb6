package database

// Chat queries
const (
	insertChatQuery = `
		INSERT INTO chats (phone, contact_name, status)
		VALUES (?, ?, ?)
		ON CONFLICT(phone) DO NOTHING
	`

	selectChatColumns = `
		id, phone, contact_name, status, profile_pic, unread_count,
		last_message, last_message_type, last_message_sender,
		last_message_status, last_interaction_at, is_ai_paused,
		created_at, updated_at
	`

	selectChatByPhoneQuery = `
		SELECT ` + selectChatColumns + `
		FROM chats
		WHERE phone = ?
	`

	selectChatByIDQuery = `
		SELECT ` + selectChatColumns + `
		FROM chats
		WHERE id = ?
	`

	updateChatNameQuery = `
		UPDATE chats
		SET contact_name = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updateChatProfilePicQuery = `
		UPDATE chats
		SET profile_pic = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updateChatSummaryQuery = `
		UPDATE chats
		SET unread_count = ?,
		    last_message = ?,
		    last_message_type = ?,
		    last_message_sender = ?,
		    last_message_status = ?,
		    last_interaction_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updateChatUnreadQuery = `
		UPDATE chats
		SET unread_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
)

// Message queries
const (
	insertMessageQuery = `
		INSERT INTO chat_messages (
			chat_id, phone, content, sender, type, media_url, external_id, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectMessageByExternalIDQuery = `
		SELECT id, chat_id, phone, content, sender, type, media_url,
		       external_id, COALESCE(status, ''), created_at
		FROM chat_messages
		WHERE external_id = ?
	`

	countMessagesByChatQuery = `
		SELECT COUNT(*) FROM chat_messages WHERE chat_id = ?
	`

	deleteOldMessagesQuery = `
		DELETE FROM chat_messages
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`
)
