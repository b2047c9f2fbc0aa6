package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ts normalises timestamps to whole UTC seconds so that stored values
// compare correctly as text.
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullTS(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: ts(*t), Valid: true}
}

const cardColumns = `hash, question, answer, context, priority, state, stability, difficulty,
	retrievability, due_date, last_review, scheduled_days, elapsed_days, reps, lapses`

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (domain.Card, error) {
	var (
		c          domain.Card
		priority   string
		lastReview sql.NullTime
	)
	err := row.Scan(
		&c.Hash,
		&c.Question,
		&c.Answer,
		&c.Context,
		&priority,
		&c.State,
		&c.Stability,
		&c.Difficulty,
		&c.Retrievability,
		&c.DueDate,
		&lastReview,
		&c.ScheduledDays,
		&c.ElapsedDays,
		&c.Reps,
		&c.Lapses,
	)
	if err != nil {
		return domain.Card{}, err
	}
	c.Priority = domain.Priority(priority)
	c.DueDate = c.DueDate.UTC()
	if lastReview.Valid {
		t := lastReview.Time.UTC()
		c.LastReview = &t
	}
	return c, nil
}

func (db *DB) queryCards(query string, args ...any) ([]domain.Card, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// InsertCard inserts a new card into the database in the NEW state.
// A zero DueDate is replaced by the current time.
func (db *DB) InsertCard(card domain.Card, sourceID int64) error {
	due := card.DueDate
	if due.IsZero() {
		due = time.Now()
	}
	priority := card.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	_, err := db.conn.Exec(`
		INSERT INTO cards (hash, question, answer, context, priority, state, due_date, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.Hash,
		card.Question,
		card.Answer,
		card.Context,
		string(priority),
		int(domain.New),
		ts(due),
		sourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
	}
	return nil
}

// FindCardByHash retrieves a card by its hash. It returns nil, nil when
// no card matches.
func (db *DB) FindCardByHash(hash string) (*domain.Card, error) {
	row := db.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE hash = ?`, hash)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return &c, nil
}

// UpdateCard writes a card's memory state and review information.
func (db *DB) UpdateCard(card domain.Card) error {
	res, err := db.conn.Exec(`
		UPDATE cards
		SET state = ?, stability = ?, difficulty = ?, retrievability = ?, due_date = ?,
			last_review = ?, scheduled_days = ?, elapsed_days = ?, reps = ?, lapses = ?
		WHERE hash = ?
	`,
		int(card.State),
		card.Stability,
		card.Difficulty,
		card.Retrievability,
		ts(card.DueDate),
		nullTS(card.LastReview),
		card.ScheduledDays,
		card.ElapsedDays,
		card.Reps,
		card.Lapses,
		card.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.Hash, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update card %s: %w", card.Hash, sql.ErrNoRows)
	}
	return nil
}

// UpdateCardPriority changes the priority tag of an existing card.
func (db *DB) UpdateCardPriority(hash string, p domain.Priority) error {
	_, err := db.conn.Exec(`UPDATE cards SET priority = ? WHERE hash = ?`, string(p), hash)
	if err != nil {
		return fmt.Errorf("failed to update priority for card %s: %w", hash, err)
	}
	return nil
}

// GetDueCards returns reviewed cards due at or before now, oldest first.
// A limit of zero or less returns every due card.
func (db *DB) GetDueCards(now time.Time, limit int) ([]domain.Card, error) {
	cards, err := db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE state != ? AND due_date <= ?
		ORDER BY due_date, rowid
		LIMIT ?
	`, int(domain.New), ts(now), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	return cards, nil
}

// GetNewCards returns cards that have never been reviewed, in insertion order.
func (db *DB) GetNewCards(limit int) ([]domain.Card, error) {
	cards, err := db.queryCards(`
		SELECT `+cardColumns+` FROM cards
		WHERE state = ?
		ORDER BY rowid
		LIMIT ?
	`, int(domain.New), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get new cards: %w", err)
	}
	return cards, nil
}

// GetAllCards returns every stored card.
func (db *DB) GetAllCards() ([]domain.Card, error) {
	cards, err := db.queryCards(`SELECT ` + cardColumns + ` FROM cards ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	return cards, nil
}

// GetCardsBySourceID retrieves all cards associated with a specific source ID.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]domain.Card, error) {
	cards, err := db.queryCards(`SELECT `+cardColumns+` FROM cards WHERE source_id = ? ORDER BY rowid`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	return cards, nil
}

// DeleteCardByHash removes a card from the database by its hash.
// Its review logs are kept.
func (db *DB) DeleteCardByHash(hash string) error {
	_, err := db.conn.Exec(`
		DELETE FROM cards
		WHERE hash = ?
	`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete card with hash %s: %w", hash, err)
	}
	return nil
}

// SQLite treats a negative LIMIT as no limit.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
