package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveArtifact inserts a typed payload produced by a generation handler.
func (s *Store) SaveArtifact(ctx context.Context, sessionID, artifactType, payload string) (*Artifact, error) {
	if sessionID == "" || artifactType == "" {
		return nil, errors.New("artifact requires session id and type")
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (session_id, type, payload, created_at) VALUES (?, ?, ?, ?)`,
		sessionID,
		artifactType,
		payload,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Artifact{ID: id, SessionID: sessionID, Type: artifactType, Payload: payload, CreatedAt: now}, nil
}

// LatestArtifact returns the newest artifact of a type for a session, or
// (nil, nil) when none exists.
func (s *Store) LatestArtifact(ctx context.Context, sessionID, artifactType string) (*Artifact, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts
         WHERE session_id = ? AND type = ? ORDER BY id DESC LIMIT 1`,
		sessionID,
		artifactType,
	)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest artifact: %w", err)
	}
	return artifact, nil
}

// ArtifactsBySession returns all artifacts for a session ordered by
// creation.
func (s *Store) ArtifactsBySession(ctx context.Context, sessionID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

const artifactColumns = "id, session_id, type, payload, created_at"

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*Artifact, error) {
	var (
		id         int64
		sessionID  string
		aType      string
		payload    string
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &sessionID, &aType, &payload, &createdRaw); err != nil {
		return nil, err
	}
	artifact := &Artifact{ID: id, SessionID: sessionID, Type: aType, Payload: payload}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artifact.CreatedAt = created
	}
	return artifact, nil
}
