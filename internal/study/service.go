// Package study runs study sessions against a card store.
//
// It is the only place where the scheduling core meets persistence: cards
// are fetched when a session starts or continues, every answer is written
// back with its review log, and the session totals are flushed at the end.
package study

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
	"github.com/conorfennell/knolstudy/internal/logger"
	"github.com/conorfennell/knolstudy/internal/queue"
	"github.com/conorfennell/knolstudy/internal/scheduler"
	"github.com/conorfennell/knolstudy/internal/session"
)

// Store is the persistence the service needs. storage.DB implements it.
type Store interface {
	GetDueCards(now time.Time, limit int) ([]domain.Card, error)
	GetNewCards(limit int) ([]domain.Card, error)
	UpdateCard(card domain.Card) error
	InsertReviewLog(log domain.ReviewLog) error
	CreateSession(rec domain.SessionRecord) error
	FinishSession(rec domain.SessionRecord) error
}

// Fetch sizes for the first batch of a session and for each continuation.
const (
	DefaultNewLimit            = 20
	DefaultReviewLimit         = 100
	DefaultContinueNewLimit    = 10
	DefaultContinueReviewLimit = 50
)

var (
	// ErrSessionActive is returned by Start while a session is running.
	ErrSessionActive = errors.New("study: session already active")
	// ErrQueueNotExhausted is returned by Continue while cards remain.
	ErrQueueNotExhausted = errors.New("study: queue not exhausted")
)

// Options configures a Service. Zero limits select the defaults; a negative
// limit fetches every matching card.
type Options struct {
	Params fsrs.Params

	NewLimit            int
	ReviewLimit         int
	ContinueNewLimit    int
	ContinueReviewLimit int

	ExamDate     *time.Time
	ExamPullDays float64

	RequeueMin int
	RequeueMax int
	Rand       *rand.Rand
	Now        func() time.Time
	NewID      func() uuid.UUID
}

// Service drives one study session at a time over a Store.
type Service struct {
	store  Store
	log    *logger.Logger
	opts   Options
	runner *session.Runner
	active bool
	exam   bool
}

// New returns a Service with the defaults filled into opts.
func New(store Store, log *logger.Logger, opts Options) *Service {
	if opts.NewLimit == 0 {
		opts.NewLimit = DefaultNewLimit
	}
	if opts.ReviewLimit == 0 {
		opts.ReviewLimit = DefaultReviewLimit
	}
	if opts.ContinueNewLimit == 0 {
		opts.ContinueNewLimit = DefaultContinueNewLimit
	}
	if opts.ContinueReviewLimit == 0 {
		opts.ContinueReviewLimit = DefaultContinueReviewLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	return &Service{
		store: store,
		log:   log,
		opts:  opts,
		runner: session.New(opts.Params, session.Options{
			Rand:       opts.Rand,
			RequeueMin: opts.RequeueMin,
			RequeueMax: opts.RequeueMax,
			Now:        opts.Now,
		}),
	}
}

// Start fetches due and new cards, orders them and opens a session. It
// returns the queue length; with nothing to study no session is opened.
func (s *Service) Start() (int, error) {
	if s.active {
		return 0, ErrSessionActive
	}
	if err := s.opts.Params.Validate(); err != nil {
		return 0, err
	}
	cards, err := s.fetch(s.opts.NewLimit, s.opts.ReviewLimit)
	if err != nil {
		return 0, err
	}
	if len(cards) == 0 {
		s.log.Info("no cards due")
		return 0, nil
	}

	rec := domain.SessionRecord{
		ID:        s.opts.NewID(),
		StartedAt: s.opts.Now(),
		ExamMode:  s.examMode(),
	}
	if err := s.store.CreateSession(rec); err != nil {
		return 0, err
	}
	s.runner.Start(cards, rec.ID)
	s.active = true
	s.exam = rec.ExamMode
	s.log.Info("session started", "session_id", rec.ID, "cards", len(cards), "exam_mode", rec.ExamMode)
	return len(cards), nil
}

// Continue appends another, smaller batch to a session whose queue is
// exhausted. It returns the number of cards added.
func (s *Service) Continue() (int, error) {
	if !s.active {
		return 0, session.ErrNotActive
	}
	if !s.runner.Complete() {
		return 0, ErrQueueNotExhausted
	}
	cards, err := s.fetch(s.opts.ContinueNewLimit, s.opts.ContinueReviewLimit)
	if err != nil {
		return 0, err
	}
	if err := s.runner.Append(cards); err != nil {
		return 0, err
	}
	s.log.Info("session continued", "session_id", s.runner.Stats().SessionID, "cards", len(cards))
	return len(cards), nil
}

func (s *Service) fetch(newLimit, reviewLimit int) ([]domain.Card, error) {
	now := s.opts.Now()
	due, err := s.store.GetDueCards(now, reviewLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due cards: %w", err)
	}
	fresh, err := s.store.GetNewCards(newLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch new cards: %w", err)
	}
	return queue.Build(append(due, fresh...), queue.Options{
		Now:          now,
		ExamDate:     s.opts.ExamDate,
		ExamPullDays: s.opts.ExamPullDays,
	}), nil
}

func (s *Service) examMode() bool {
	return s.opts.ExamDate != nil && s.opts.ExamDate.After(s.opts.Now())
}

// Current returns the card to present, if any.
func (s *Service) Current() (domain.Card, bool) {
	return s.runner.Current()
}

// Preview returns the outcome of each rating for the current card.
func (s *Service) Preview() (scheduler.SchedulingOptions, error) {
	card, ok := s.runner.Current()
	if !ok {
		return nil, session.ErrEmptyQueue
	}
	return scheduler.Preview(card, s.opts.Params, s.opts.Now())
}

// Answer rates the current card and persists the result.
func (s *Service) Answer(r domain.Rating) (domain.Card, error) {
	card, log, err := s.runner.Answer(r)
	if err != nil {
		return domain.Card{}, err
	}
	if err := s.store.UpdateCard(card); err != nil {
		return card, err
	}
	if err := s.store.InsertReviewLog(log); err != nil {
		return card, err
	}
	s.log.Debug("card reviewed",
		"hash", card.Hash,
		"rating", r.String(),
		"state", card.State.String(),
		"due", card.DueDate,
	)
	return card, nil
}

// Skip defers the current card to the end of the queue.
func (s *Service) Skip() error {
	return s.runner.Skip()
}

// Progress reports the session position and accuracy.
func (s *Service) Progress() session.Progress {
	return s.runner.Progress()
}

// Complete reports whether the queue has been worked through.
func (s *Service) Complete() bool {
	return s.runner.Complete()
}

// End closes the session and stores its totals.
func (s *Service) End() (domain.SessionRecord, error) {
	if !s.active {
		return domain.SessionRecord{}, session.ErrNotActive
	}
	rec, err := s.runner.End()
	if err != nil {
		return domain.SessionRecord{}, err
	}
	s.active = false
	rec.ExamMode = s.exam
	if err := s.store.FinishSession(rec); err != nil {
		return rec, err
	}
	s.log.Info("session ended",
		"session_id", rec.ID,
		"studied", rec.CardsStudied,
		"correct", rec.CardsCorrect,
		"minutes", rec.DurationMinutes,
	)
	return rec, nil
}
