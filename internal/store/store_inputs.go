package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveCVPInputs upserts the CVP input fields for a session.
func (s *Store) SaveCVPInputs(ctx context.Context, inputs *CVPInputs) error {
	if inputs == nil || inputs.SessionID == "" {
		return errors.New("inputs require a session id")
	}
	now := time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO cvp_inputs (
            session_id, for_who, in_situation, struggles_with, current_workaround,
            we_offer, so_they_get, unlike, because, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            for_who = excluded.for_who,
            in_situation = excluded.in_situation,
            struggles_with = excluded.struggles_with,
            current_workaround = excluded.current_workaround,
            we_offer = excluded.we_offer,
            so_they_get = excluded.so_they_get,
            unlike = excluded.unlike,
            because = excluded.because,
            updated_at = excluded.updated_at`,
		inputs.SessionID,
		nullableString(inputs.ForWho),
		nullableString(inputs.InSituation),
		nullableString(inputs.StrugglesWith),
		nullableString(inputs.CurrentWorkaround),
		nullableString(inputs.WeOffer),
		nullableString(inputs.SoTheyGet),
		nullableString(inputs.Unlike),
		nullableString(inputs.Because),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("save cvp inputs: %w", err)
	}
	inputs.UpdatedAt = now
	return nil
}

// GetCVPInputs fetches a session's CVP inputs. Missing inputs return
// (nil, nil).
func (s *Store) GetCVPInputs(ctx context.Context, sessionID string) (*CVPInputs, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT session_id, for_who, in_situation, struggles_with, current_workaround,
                we_offer, so_they_get, unlike, because, updated_at
         FROM cvp_inputs WHERE session_id = ?`,
		sessionID,
	)

	var (
		id         string
		forWho     sql.NullString
		situation  sql.NullString
		struggles  sql.NullString
		workaround sql.NullString
		weOffer    sql.NullString
		soTheyGet  sql.NullString
		unlike     sql.NullString
		because    sql.NullString
		updatedRaw sql.NullString
	)
	err := row.Scan(&id, &forWho, &situation, &struggles, &workaround, &weOffer, &soTheyGet, &unlike, &because, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cvp inputs: %w", err)
	}

	inputs := &CVPInputs{
		SessionID:         id,
		ForWho:            forWho.String,
		InSituation:       situation.String,
		StrugglesWith:     struggles.String,
		CurrentWorkaround: workaround.String,
		WeOffer:           weOffer.String,
		SoTheyGet:         soTheyGet.String,
		Unlike:            unlike.String,
		Because:           because.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		inputs.UpdatedAt = updated
	}
	return inputs, nil
}
