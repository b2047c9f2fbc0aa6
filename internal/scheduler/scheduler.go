// Package scheduler applies the FSRS memory model to a card's state machine.
//
// Every function here is pure: it takes a card snapshot and returns a new
// one. Persisting the result is the caller's job.
package scheduler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
)

// ErrInvalidState signals a state/rating pair outside the transition table
// or a card whose memory state contradicts its FSM position. It is a logic
// bug, not a user-facing condition.
var ErrInvalidState = errors.New("scheduler: invalid card state")

const day = 24 * time.Hour

// memory is the outcome of one transition before it is stamped onto a card.
type memory struct {
	state      domain.State
	stability  float64
	difficulty float64
	days       int           // 0 means a same-day step
	step       time.Duration // used when days == 0
	lapse      bool
}

// Schedule applies a rating to card at now and returns the updated snapshot.
// The input card is not modified.
func Schedule(card domain.Card, rating domain.Rating, params fsrs.Params, now time.Time) (domain.Card, error) {
	if err := rating.Validate(); err != nil {
		return domain.Card{}, err
	}
	if err := checkParams(params); err != nil {
		return domain.Card{}, err
	}

	elapsed := ElapsedDays(card, now)
	// Retrievability has to be read before anything changes.
	r := 1.0
	if card.State != domain.New {
		r = fsrs.Retrievability(card.Stability, float64(elapsed))
	}

	m, err := transition(card, rating, params, r)
	if err != nil {
		return domain.Card{}, err
	}
	if err := fsrs.CheckFinite("stability", m.stability); err != nil {
		return domain.Card{}, fmt.Errorf("card %s: %w", card.Hash, err)
	}
	if err := fsrs.CheckFinite("difficulty", m.difficulty); err != nil {
		return domain.Card{}, fmt.Errorf("card %s: %w", card.Hash, err)
	}

	out := card.Clone()
	out.State = m.state
	out.Stability = m.stability
	out.Difficulty = m.difficulty
	out.Retrievability = fsrs.Retrievability(m.stability, 0)
	out.ScheduledDays = m.days
	out.ElapsedDays = elapsed
	out.Reps++
	if m.lapse {
		out.Lapses++
	}
	if m.days > 0 {
		out.DueDate = now.Add(time.Duration(m.days) * day)
	} else {
		out.DueDate = now.Add(m.step)
	}
	reviewed := now
	out.LastReview = &reviewed

	return out, nil
}

// Review is Schedule plus the review-log record describing the change.
func Review(card domain.Card, rating domain.Rating, params fsrs.Params, now time.Time) (domain.Card, domain.ReviewLog, error) {
	updated, err := Schedule(card, rating, params, now)
	if err != nil {
		return domain.Card{}, domain.ReviewLog{}, err
	}
	log := domain.ReviewLog{
		CardHash:         card.Hash,
		Rating:           rating,
		ReviewedAt:       now,
		StateBefore:      card.State,
		StateAfter:       updated.State,
		DifficultyBefore: card.Difficulty,
		DifficultyAfter:  updated.Difficulty,
		StabilityBefore:  card.Stability,
		StabilityAfter:   updated.Stability,
		ScheduledDays:    updated.ScheduledDays,
		ElapsedDays:      updated.ElapsedDays,
	}
	return updated, log, nil
}

// ElapsedDays returns the whole days between the card's last review and now.
// New cards, and cards whose last review lies in the future, report 0.
func ElapsedDays(card domain.Card, now time.Time) int {
	if card.State == domain.New || card.LastReview == nil {
		return 0
	}
	d := now.Sub(*card.LastReview)
	if d <= 0 {
		return 0
	}
	return int(d / day)
}

func transition(card domain.Card, rating domain.Rating, p fsrs.Params, r float64) (memory, error) {
	pass := rating != domain.Again

	switch card.State {
	case domain.New:
		// A first pass goes through Learning and graduates in the same event.
		m := memory{
			stability:  p.InitialStability(rating),
			difficulty: p.InitialDifficulty(rating),
		}
		if !pass {
			m.state = domain.Learning
			m.step = p.LearningStep
			return m, nil
		}
		m.state = domain.Review
		m.days = intervalOrZero(p, m.stability)
		return m, nil

	case domain.Learning:
		if !pass {
			return memory{
				state:      domain.Learning,
				stability:  card.Stability,
				difficulty: card.Difficulty,
				step:       p.LearningStep,
			}, nil
		}
		s := p.InitialStability(rating)
		return memory{
			state:      domain.Review,
			stability:  s,
			difficulty: p.InitialDifficulty(rating),
			days:       intervalOrZero(p, s),
		}, nil

	case domain.Review:
		if card.Stability <= 0 {
			return memory{}, fmt.Errorf("%w: %s card %s has stability %v", ErrInvalidState, card.State, card.Hash, card.Stability)
		}
		d := p.NextDifficulty(card.Difficulty, rating)
		if !pass {
			return memory{
				state:      domain.Relearning,
				stability:  p.NextLapseStability(card.Stability, card.Difficulty, r),
				difficulty: d,
				step:       p.RelearningStep,
				lapse:      true,
			}, nil
		}
		s := p.NextRecallStability(card.Stability, card.Difficulty, r, rating)
		return memory{
			state:      domain.Review,
			stability:  s,
			difficulty: d,
			days:       intervalOrZero(p, s),
		}, nil

	case domain.Relearning:
		if card.Stability <= 0 {
			return memory{}, fmt.Errorf("%w: %s card %s has stability %v", ErrInvalidState, card.State, card.Hash, card.Stability)
		}
		if !pass {
			return memory{
				state:      domain.Relearning,
				stability:  card.Stability,
				difficulty: card.Difficulty,
				step:       p.RelearningStep,
			}, nil
		}
		return memory{
			state:      domain.Review,
			stability:  card.Stability,
			difficulty: p.NextDifficulty(card.Difficulty, rating),
			days:       intervalOrZero(p, card.Stability),
		}, nil
	}

	return memory{}, fmt.Errorf("%w: %s with rating %s", ErrInvalidState, card.State, rating)
}

// intervalOrZero leaves a non-finite stability for the caller to reject
// instead of converting it into an interval.
func intervalOrZero(p fsrs.Params, s float64) int {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return p.Interval(s)
}

// checkParams does the cheap per-call range checks. Full validation happens
// once, when the params are built.
func checkParams(p fsrs.Params) error {
	if !(p.TargetRetention > 0 && p.TargetRetention < 1) {
		return fmt.Errorf("%w: target retention %v outside (0, 1)", fsrs.ErrInvalidParams, p.TargetRetention)
	}
	if p.MaxInterval < 1 {
		return fmt.Errorf("%w: max interval %d", fsrs.ErrInvalidParams, p.MaxInterval)
	}
	return nil
}
