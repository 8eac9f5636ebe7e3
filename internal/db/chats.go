package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"forge/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// timeLayout is RFC 3339 in UTC with a fixed-width fraction, so stored
// timestamps order correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

// Turn is one exchange as the history keeps it: the prompt that opened the
// turn and the reply that ended it. Tool traffic in between is not stored.
type Turn struct {
	ChatID  int64 // 0 starts a new chat
	ModelID string
	Title   string
	Prompt  models.Message
	Reply   models.Message
}

// SaveTurn writes both messages in one transaction and returns the chat id.
// Message ids and timestamps are stored as given so a restored transcript
// keeps them.
func SaveTurn(db *sql.DB, turn Turn) (int64, error) {
	for _, msg := range []models.Message{turn.Prompt, turn.Reply} {
		if msg.ID == "" {
			return 0, fmt.Errorf("%s message has no id", msg.Role)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	updated := turn.Reply.Timestamp
	if turn.Prompt.Timestamp.After(updated) {
		updated = turn.Prompt.Timestamp
	}

	chatID := turn.ChatID
	if chatID == 0 {
		res, err := tx.Exec(
			"INSERT INTO chats(title, model_id, created_at, updated_at) VALUES(?, ?, ?, ?)",
			turn.Title, turn.ModelID, formatTime(turn.Prompt.Timestamp), formatTime(updated),
		)
		if err != nil {
			return 0, fmt.Errorf("create chat: %w", err)
		}
		if chatID, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	} else {
		res, err := tx.Exec(
			"UPDATE chats SET title = ?, model_id = ?, updated_at = ? WHERE id = ?",
			turn.Title, turn.ModelID, formatTime(updated), chatID,
		)
		if err != nil {
			return 0, fmt.Errorf("update chat %d: %w", chatID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return 0, err
		} else if n == 0 {
			return 0, fmt.Errorf("chat %d: %w", chatID, ErrChatNotFound)
		}
	}

	for _, msg := range []models.Message{turn.Prompt, turn.Reply} {
		if _, err := tx.Exec(
			"INSERT INTO chat_messages(chat_id, msg_id, role, content, created_at) VALUES(?, ?, ?, ?, ?)",
			chatID, msg.ID, msg.Role, msg.Content, formatTime(msg.Timestamp),
		); err != nil {
			return 0, fmt.Errorf("store message %s: %w", msg.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return chatID, nil
}

// GetRecentChats returns one page of chats, most recently active first,
// together with the total number of chats.
func GetRecentChats(db *sql.DB, limit, offset int) (int, []models.ChatListItem, error) {
	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := db.Query(
		"SELECT id, title, model_id, updated_at FROM chats ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	items := make([]models.ChatListItem, 0, limit)
	for rows.Next() {
		var (
			it      models.ChatListItem
			updated string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.ModelID, &updated); err != nil {
			return 0, nil, err
		}
		if it.UpdatedAt, err = parseTime(updated); err != nil {
			return 0, nil, fmt.Errorf("chat %d: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return total, items, rows.Err()
}

// GetChatMessages returns a chat's messages in the order they were saved,
// with the ids and timestamps they had in the live transcript.
func GetChatMessages(db *sql.DB, chatID int64) ([]models.Message, error) {
	rows, err := db.Query(
		"SELECT msg_id, role, content, created_at FROM chat_messages WHERE chat_id = ? ORDER BY seq",
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			msg     models.Message
			created string
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &created); err != nil {
			return nil, err
		}
		if msg.Timestamp, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
