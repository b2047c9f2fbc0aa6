package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// InsertReviewLog appends one review event.
func (db *DB) InsertReviewLog(log domain.ReviewLog) error {
	_, err := db.conn.Exec(`
		INSERT INTO review_logs (card_hash, rating, reviewed_at, state_before, state_after,
			difficulty_before, difficulty_after, stability_before, stability_after,
			scheduled_days, elapsed_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		log.CardHash,
		int(log.Rating),
		ts(log.ReviewedAt),
		int(log.StateBefore),
		int(log.StateAfter),
		log.DifficultyBefore,
		log.DifficultyAfter,
		log.StabilityBefore,
		log.StabilityAfter,
		log.ScheduledDays,
		log.ElapsedDays,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review log for card %s: %w", log.CardHash, err)
	}
	return nil
}

// GetReviewLogs returns the review history of a card, oldest first.
func (db *DB) GetReviewLogs(hash string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.Query(`
		SELECT card_hash, rating, reviewed_at, state_before, state_after,
			difficulty_before, difficulty_after, stability_before, stability_after,
			scheduled_days, elapsed_days
		FROM review_logs
		WHERE card_hash = ?
		ORDER BY reviewed_at, id
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for card %s: %w", hash, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		if err := rows.Scan(
			&l.CardHash,
			&l.Rating,
			&l.ReviewedAt,
			&l.StateBefore,
			&l.StateAfter,
			&l.DifficultyBefore,
			&l.DifficultyAfter,
			&l.StabilityBefore,
			&l.StabilityAfter,
			&l.ScheduledDays,
			&l.ElapsedDays,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review log row for card %s: %w", hash, err)
		}
		l.ReviewedAt = l.ReviewedAt.UTC()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CreateSession records the start of a study session.
func (db *DB) CreateSession(rec domain.SessionRecord) error {
	_, err := db.conn.Exec(`
		INSERT INTO study_sessions (id, started_at, exam_mode)
		VALUES (?, ?, ?)
	`, rec.ID.String(), ts(rec.StartedAt), rec.ExamMode)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", rec.ID, err)
	}
	return nil
}

// FinishSession stores the end time and totals of a session.
func (db *DB) FinishSession(rec domain.SessionRecord) error {
	res, err := db.conn.Exec(`
		UPDATE study_sessions
		SET ended_at = ?, duration_minutes = ?, cards_studied = ?, cards_correct = ?,
			cards_incorrect = ?, new_cards_studied = ?
		WHERE id = ?
	`,
		nullTS(rec.EndedAt),
		rec.DurationMinutes,
		rec.CardsStudied,
		rec.CardsCorrect,
		rec.CardsIncorrect,
		rec.NewCardsStudied,
		rec.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to finish session %s: %w", rec.ID, sql.ErrNoRows)
	}
	return nil
}

// FindSession retrieves a session record by ID. It returns nil, nil when
// the session does not exist.
func (db *DB) FindSession(id uuid.UUID) (*domain.SessionRecord, error) {
	var (
		rec     domain.SessionRecord
		rawID   string
		endedAt sql.NullTime
	)
	row := db.conn.QueryRow(`
		SELECT id, started_at, ended_at, duration_minutes, cards_studied, cards_correct,
			cards_incorrect, new_cards_studied, exam_mode
		FROM study_sessions WHERE id = ?
	`, id.String())
	err := row.Scan(
		&rawID,
		&rec.StartedAt,
		&endedAt,
		&rec.DurationMinutes,
		&rec.CardsStudied,
		&rec.CardsCorrect,
		&rec.CardsIncorrect,
		&rec.NewCardsStudied,
		&rec.ExamMode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session %s: %w", id, err)
	}
	if rec.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("failed to parse session id %q: %w", rawID, err)
	}
	rec.StartedAt = rec.StartedAt.UTC()
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		rec.EndedAt = &t
	}
	return &rec, nil
}
