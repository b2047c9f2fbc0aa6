// Package session drives a single study session over an ordered queue.
//
// A Runner is not safe for concurrent use. Hosts own one Runner per
// interaction stream and do their own persistence around Answer and End.
package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
	"github.com/conorfennell/knolstudy/internal/scheduler"
)

var (
	// ErrEmptyQueue is returned when there is no card under the cursor.
	ErrEmptyQueue = errors.New("session: no current card")
	// ErrNotActive is returned by operations that need a started session.
	ErrNotActive = errors.New("session: not active")
)

// Bounds, in cards, on how far ahead a failed card is put back.
const (
	DefaultRequeueMin = 5
	DefaultRequeueMax = 9
)

// Status is the lifecycle stage of a Runner.
type Status int

const (
	Idle Status = iota
	Active
	Complete
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// Options configures a Runner. Zero values select the defaults.
type Options struct {
	Rand       *rand.Rand
	RequeueMin int
	RequeueMax int
	Now        func() time.Time
}

// Stats are the running totals of the current session.
type Stats struct {
	SessionID  uuid.UUID
	StartedAt  time.Time
	Studied    int
	Correct    int
	Incorrect  int
	NewStudied int
}

// Progress is the position and score shown while studying.
type Progress struct {
	CurrentIndex int // 1-based position of the current card
	Total        int
	Completed    int
	Remaining    int
	Percentage   int
	Accuracy     int
}

// Runner walks a queue of cards, scheduling each answer and putting
// failed cards back a few positions ahead.
type Runner struct {
	params fsrs.Params
	rng    *rand.Rand
	minGap int
	maxGap int
	now    func() time.Time

	active bool
	queue  []domain.Card
	cursor int
	stats  Stats
}

// New returns an idle Runner that schedules with params.
func New(params fsrs.Params, opts Options) *Runner {
	r := &Runner{
		params: params,
		rng:    opts.Rand,
		minGap: opts.RequeueMin,
		maxGap: opts.RequeueMax,
		now:    opts.Now,
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.minGap <= 0 {
		r.minGap = DefaultRequeueMin
	}
	if r.maxGap < r.minGap {
		r.maxGap = max(DefaultRequeueMax, r.minGap)
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Start begins a session over a copy of queue.
func (r *Runner) Start(queue []domain.Card, id uuid.UUID) {
	r.queue = make([]domain.Card, len(queue))
	for i, c := range queue {
		r.queue[i] = c.Clone()
	}
	r.cursor = 0
	r.stats = Stats{SessionID: id, StartedAt: r.now()}
	r.active = true
}

// Status reports whether the Runner is idle, active or complete.
func (r *Runner) Status() Status {
	switch {
	case !r.active:
		return Idle
	case r.Complete():
		return Complete
	default:
		return Active
	}
}

// Stats returns the running totals.
func (r *Runner) Stats() Stats {
	return r.stats
}

// Current returns the card under the cursor.
func (r *Runner) Current() (domain.Card, bool) {
	if !r.active || r.cursor >= len(r.queue) {
		return domain.Card{}, false
	}
	return r.queue[r.cursor].Clone(), true
}

// Answer rates the current card. A failed card is moved a few positions
// ahead so it comes back in the same session; any other rating advances
// the cursor.
func (r *Runner) Answer(rating domain.Rating) (domain.Card, domain.ReviewLog, error) {
	if err := rating.Validate(); err != nil {
		return domain.Card{}, domain.ReviewLog{}, err
	}
	current, ok := r.Current()
	if !ok {
		return domain.Card{}, domain.ReviewLog{}, ErrEmptyQueue
	}

	updated, log, err := scheduler.Review(current, rating, r.params, r.now())
	if err != nil {
		return domain.Card{}, domain.ReviewLog{}, fmt.Errorf("failed to review card %s: %w", current.Hash, err)
	}

	r.stats.Studied++
	if current.IsNew() {
		r.stats.NewStudied++
	}
	if rating.Passed() {
		r.stats.Correct++
	} else {
		r.stats.Incorrect++
	}

	if rating == domain.Again {
		r.remove(r.cursor)
		at := min(r.cursor+r.offset(), len(r.queue))
		r.insert(at, updated)
	} else {
		r.queue[r.cursor] = updated
		r.cursor++
	}
	return updated.Clone(), log, nil
}

// Skip moves the current card to the end of the queue without rating it.
func (r *Runner) Skip() error {
	current, ok := r.Current()
	if !ok {
		return ErrEmptyQueue
	}
	r.remove(r.cursor)
	r.queue = append(r.queue, current)
	return nil
}

// Complete reports whether every card has been answered at least once
// and nothing is left under the cursor.
func (r *Runner) Complete() bool {
	return r.active && r.cursor >= len(r.queue) && r.stats.Studied > 0
}

// Append extends the session with more cards, typically after Complete.
func (r *Runner) Append(cards []domain.Card) error {
	if !r.active {
		return ErrNotActive
	}
	for _, c := range cards {
		r.queue = append(r.queue, c.Clone())
	}
	return nil
}

// Progress reports the cursor position, completion and accuracy.
func (r *Runner) Progress() Progress {
	total := len(r.queue)
	p := Progress{
		CurrentIndex: min(r.cursor+1, total),
		Total:        total,
		Completed:    r.stats.Studied,
		Remaining:    max(0, total-r.cursor),
	}
	if total > 0 {
		p.Percentage = min(100, percent(r.stats.Studied, total))
	}
	if r.stats.Studied > 0 {
		p.Accuracy = percent(r.stats.Correct, r.stats.Studied)
	}
	return p
}

// End closes the session and returns its record. The Runner goes back to
// Idle and may be started again.
func (r *Runner) End() (domain.SessionRecord, error) {
	if !r.active {
		return domain.SessionRecord{}, ErrNotActive
	}
	ended := r.now()
	rec := domain.SessionRecord{
		ID:              r.stats.SessionID,
		StartedAt:       r.stats.StartedAt,
		EndedAt:         &ended,
		DurationMinutes: int(math.Round(ended.Sub(r.stats.StartedAt).Minutes())),
		CardsStudied:    r.stats.Studied,
		CardsCorrect:    r.stats.Correct,
		CardsIncorrect:  r.stats.Incorrect,
		NewCardsStudied: r.stats.NewStudied,
	}
	r.active = false
	r.queue = nil
	r.cursor = 0
	r.stats = Stats{}
	return rec, nil
}

func (r *Runner) offset() int {
	return r.minGap + r.rng.Intn(r.maxGap-r.minGap+1)
}

func (r *Runner) remove(i int) {
	r.queue = append(r.queue[:i], r.queue[i+1:]...)
}

func (r *Runner) insert(i int, c domain.Card) {
	r.queue = append(r.queue, domain.Card{})
	copy(r.queue[i+1:], r.queue[i:])
	r.queue[i] = c
}

func percent(n, d int) int {
	return int(math.Round(float64(n) / float64(d) * 100))
}
