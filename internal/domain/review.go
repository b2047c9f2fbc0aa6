package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewLog records a single review event for a card. Logs are append-only
// and keyed by card hash; they are never embedded in Card.
type ReviewLog struct {
	CardHash         string
	Rating           Rating
	ReviewedAt       time.Time
	StateBefore      State
	StateAfter       State
	DifficultyBefore float64
	DifficultyAfter  float64
	StabilityBefore  float64
	StabilityAfter   float64
	ScheduledDays    int
	ElapsedDays      int
}

// SessionRecord is the persisted summary of one study session.
type SessionRecord struct {
	ID              uuid.UUID
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationMinutes int
	CardsStudied    int
	CardsCorrect    int
	CardsIncorrect  int
	NewCardsStudied int
	ExamMode        bool
}
