package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewJob inserts a job in the queued state. The caller supplies the id so
// it can hand it back to pollers before dispatch happens.
func (s *Store) NewJob(ctx context.Context, id, sessionID, jobType string) (*Job, error) {
	if id == "" {
		return nil, errors.New("job id must not be empty")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, session_id, type, status, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		id,
		sessionID,
		jobType,
		JobQueued,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// MarkJobRunning moves a queued job to running and stamps started_at.
// The status guard keeps the write idempotent: a job already past queued
// is left untouched.
func (s *Store) MarkJobRunning(ctx context.Context, id string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		JobRunning,
		formatTime(time.Now().UTC()),
		id,
		JobQueued,
	)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

// CompleteJob finishes a running job with its result payload. Terminal
// states are write-once: the guard refuses to touch a job that already
// completed or failed.
func (s *Store) CompleteJob(ctx context.Context, id, result string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, result = ?, completed_at = ? WHERE id = ? AND status = ?`,
		JobCompleted,
		nullableString(result),
		formatTime(time.Now().UTC()),
		id,
		JobRunning,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob finishes a job with an error message. Queued is accepted in
// addition to running so the unknown-type short circuit never passes
// through the running state.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ? AND status IN (?, ?)`,
		JobFailed,
		nullableString(message),
		formatTime(time.Now().UTC()),
		id,
		JobQueued,
		JobRunning,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// JobsBySession returns a session's jobs ordered by creation time.
func (s *Store) JobsBySession(ctx context.Context, sessionID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query jobs by session: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns session and job counts for diagnostic output.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`)
	if err := row.Scan(&stats.Sessions); err != nil {
		return Stats{}, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case JobQueued:
			stats.Queued = count
		case JobRunning:
			stats.Running = count
		case JobCompleted:
			stats.Completed = count
		case JobFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

const jobColumns = "id, session_id, type, status, result, error, created_at, started_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		sessionID    string
		jobType      string
		statusStr    string
		result       sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &sessionID, &jobType, &statusStr, &result, &errorMessage, &createdRaw, &startedRaw, &completedRaw); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		SessionID:    sessionID,
		Type:         jobType,
		Status:       JobStatus(statusStr),
		Result:       result.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}
