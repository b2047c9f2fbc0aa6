package domain

import (
	"fmt"
	"strings"
	"time"
)

// State is the position of a card in the FSRS state machine.
// The integer values are what the store persists.
type State int

const (
	New        State = 0
	Learning   State = 1
	Review     State = 2
	Relearning State = 3
)

var stateNames = [...]string{New: "NEW", Learning: "LEARNING", Review: "REVIEW", Relearning: "RELEARNING"}

// IsValid reports whether s is one of the four known states.
func (s State) IsValid() bool {
	return s >= New && s <= Relearning
}

func (s State) String() string {
	if s.IsValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState parses a state name such as "REVIEW" (case-insensitive).
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown card state %q", name)
}

// Priority is a static, author-assigned importance tag.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityNormal   Priority = "NORMAL"
	PriorityLow      Priority = "LOW"
)

// Rank orders priorities from LOW (1) to CRITICAL (4). An empty or unknown
// tag ranks as NORMAL.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// ParsePriority accepts the four tag names in any case. An empty string
// yields PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case "":
		return PriorityNormal, nil
	case PriorityCritical, PriorityHigh, PriorityNormal, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Card represents a single question-answer-context entry together with its
// memory state. Cards are passed around as value snapshots; the scheduler
// returns an updated copy and never mutates its input.
type Card struct {
	Hash     string
	Question string
	Answer   string
	Context  string
	Priority Priority

	State          State
	Difficulty     float64
	Stability      float64 // days
	Retrievability float64
	DueDate        time.Time
	LastReview     *time.Time
	ScheduledDays  int
	ElapsedDays    int
	Reps           int
	Lapses         int
}

// IsNew reports whether the card has never been rated.
func (c Card) IsNew() bool {
	return c.State == New
}

// IsDue reports whether a reviewed card is due at now. New cards are never
// "due" in this sense; they are candidates of their own.
func (c Card) IsDue(now time.Time) bool {
	return c.State != New && !c.DueDate.After(now)
}

// Clone returns a copy that shares no pointers with c.
func (c Card) Clone() Card {
	out := c
	if c.LastReview != nil {
		t := *c.LastReview
		out.LastReview = &t
	}
	return out
}
