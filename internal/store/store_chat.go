package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendChatMessage records one turn of the clarifier transcript.
func (s *Store) AppendChatMessage(ctx context.Context, sessionID, role, content string) (*ChatMessage, error) {
	if sessionID == "" || role == "" || content == "" {
		return nil, errors.New("chat message requires session id, role, and content")
	}
	if role != "user" && role != "assistant" {
		return nil, fmt.Errorf("unknown chat role %q", role)
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO chat_messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID,
		role,
		content,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &ChatMessage{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}, nil
}

// ChatMessages returns a session's transcript in insertion order.
func (s *Store) ChatMessages(ctx context.Context, sessionID string) ([]*ChatMessage, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var (
			msg        ChatMessage
			createdRaw sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			msg.CreatedAt = created
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
