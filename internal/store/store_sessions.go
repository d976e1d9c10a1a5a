package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"psfd/internal/session"
)

// NewSession inserts a session at the start stage.
func (s *Store) NewSession(ctx context.Context, id, exportToken string, expiresAt *time.Time) (*session.Session, error) {
	if id == "" {
		return nil, errors.New("session id must not be empty")
	}
	if exportToken == "" {
		return nil, errors.New("export token must not be empty")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO sessions (id, export_token, current_state, created_at, expires_at)
         VALUES (?, ?, ?, ?, ?)`,
		id,
		exportToken,
		session.StageStart,
		formatTime(now),
		nullableTime(expiresAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// GetSession fetches a session by identifier. A missing session returns
// (nil, nil).
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// GetSessionByExportToken fetches a session by its capability token.
func (s *Store) GetSessionByExportToken(ctx context.Context, token string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE export_token = ?`, token)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// UpdateSessionState persists a new current stage. This is the single
// atomic write backing session.Service.Apply.
func (s *Store) UpdateSessionState(ctx context.Context, id string, state session.Stage) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE sessions SET current_state = ? WHERE id = ?`,
		state,
		id,
	)
	if err != nil {
		return fmt.Errorf("update session state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

const sessionColumns = "id, export_token, current_state, created_at, expires_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*session.Session, error) {
	var (
		id         string
		token      string
		stateStr   string
		createdRaw sql.NullString
		expiresRaw sql.NullString
	)
	if err := scanner.Scan(&id, &token, &stateStr, &createdRaw, &expiresRaw); err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:           id,
		ExportToken:  token,
		CurrentState: session.Stage(stateStr),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		sess.CreatedAt = created
	}
	if expiresRaw.Valid {
		if expires, err := parseTimeString(expiresRaw.String); err == nil {
			sess.ExpiresAt = &expires
		}
	}
	return sess, nil
}
