package scheduler

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func reviewCard(stability, difficulty float64, lastReview time.Time) domain.Card {
	lr := lastReview
	return domain.Card{
		Hash:       "abc123",
		Question:   "Adult epinephrine dose in anaphylaxis?",
		State:      domain.Review,
		Stability:  stability,
		Difficulty: difficulty,
		DueDate:    lastReview,
		LastReview: &lr,
		Reps:       3,
		Lapses:     1,
	}
}

func mustSchedule(t *testing.T, card domain.Card, r domain.Rating, now time.Time) domain.Card {
	t.Helper()
	out, err := Schedule(card, r, fsrs.DefaultParams(), now)
	if err != nil {
		t.Fatalf("Schedule(%s, %s) returned an unexpected error: %v", card.State, r, err)
	}
	return out
}

func TestNewCardGood(t *testing.T) {
	params := fsrs.DefaultParams()
	card := domain.Card{Hash: "new1", State: domain.New, DueDate: t0}

	got := mustSchedule(t, card, domain.Good, t0)

	if got.State != domain.Review {
		t.Errorf("Expected state REVIEW, but got %s", got.State)
	}
	if got.ScheduledDays <= 0 {
		t.Errorf("Expected scheduled days > 0, but got %d", got.ScheduledDays)
	}
	if got.Reps != 1 || got.Lapses != 0 {
		t.Errorf("Expected reps=1 lapses=0, but got reps=%d lapses=%d", got.Reps, got.Lapses)
	}
	if got.Stability != params.InitialStability(domain.Good) {
		t.Errorf("Expected stability %v, but got %v", params.InitialStability(domain.Good), got.Stability)
	}
	if got.Difficulty != params.InitialDifficulty(domain.Good) {
		t.Errorf("Expected difficulty %v, but got %v", params.InitialDifficulty(domain.Good), got.Difficulty)
	}
	if got.Retrievability != 1 {
		t.Errorf("Expected retrievability 1 right after review, but got %v", got.Retrievability)
	}
	if !got.DueDate.Equal(t0.Add(time.Duration(got.ScheduledDays) * day)) {
		t.Errorf("Expected due date %d days after review, but got %v", got.ScheduledDays, got.DueDate)
	}
	if got.LastReview == nil || !got.LastReview.Equal(t0) {
		t.Errorf("Expected last review %v, but got %v", t0, got.LastReview)
	}
}

func TestReviewCardAgain(t *testing.T) {
	card := reviewCard(10, 5, t0.Add(-12*day))

	got := mustSchedule(t, card, domain.Again, t0)

	if got.State != domain.Relearning {
		t.Errorf("Expected state RELEARNING, but got %s", got.State)
	}
	if got.Lapses != card.Lapses+1 {
		t.Errorf("Expected lapses %d, but got %d", card.Lapses+1, got.Lapses)
	}
	if got.Stability >= 10 {
		t.Errorf("Expected stability below 10, but got %v", got.Stability)
	}
	if got.ElapsedDays != 12 {
		t.Errorf("Expected elapsed days 12, but got %d", got.ElapsedDays)
	}
	if got.ScheduledDays != 0 {
		t.Errorf("Expected a same-day relearning step, but got %d scheduled days", got.ScheduledDays)
	}
	if want := t0.Add(fsrs.DefaultParams().RelearningStep); !got.DueDate.Equal(want) {
		t.Errorf("Expected due date %v, but got %v", want, got.DueDate)
	}
}

func TestTransitions(t *testing.T) {
	learning := domain.Card{Hash: "l", State: domain.Learning, Stability: 0.4, Difficulty: 6.81, LastReview: &t0, DueDate: t0}
	relearning := reviewCard(3, 6, t0)
	relearning.State = domain.Relearning

	testCases := []struct {
		name      string
		card      domain.Card
		rating    domain.Rating
		wantState domain.State
		sameDay   bool
	}{
		{"new again", domain.Card{State: domain.New}, domain.Again, domain.Learning, true},
		{"new hard", domain.Card{State: domain.New}, domain.Hard, domain.Review, false},
		{"new easy", domain.Card{State: domain.New}, domain.Easy, domain.Review, false},
		{"learning again", learning, domain.Again, domain.Learning, true},
		{"learning good", learning, domain.Good, domain.Review, false},
		{"review hard", reviewCard(10, 5, t0.Add(-10*day)), domain.Hard, domain.Review, false},
		{"review easy", reviewCard(10, 5, t0.Add(-10*day)), domain.Easy, domain.Review, false},
		{"relearning again", relearning, domain.Again, domain.Relearning, true},
		{"relearning good", relearning, domain.Good, domain.Review, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustSchedule(t, tc.card, tc.rating, t0.Add(time.Hour))
			if got.State != tc.wantState {
				t.Errorf("Expected state %s, but got %s", tc.wantState, got.State)
			}
			if tc.sameDay && got.ScheduledDays != 0 {
				t.Errorf("Expected a same-day step, but got %d days", got.ScheduledDays)
			}
			if !tc.sameDay && got.ScheduledDays < 1 {
				t.Errorf("Expected at least one day, but got %d", got.ScheduledDays)
			}
			if got.Reps != tc.card.Reps+1 {
				t.Errorf("Expected reps %d, but got %d", tc.card.Reps+1, got.Reps)
			}
			if got.Lapses != tc.card.Lapses {
				t.Errorf("Expected lapses to stay %d, but got %d", tc.card.Lapses, got.Lapses)
			}
			if got.DueDate.Before(*got.LastReview) {
				t.Errorf("Due date %v is before last review %v", got.DueDate, got.LastReview)
			}
		})
	}
}

func TestLearningGraduationUsesInitialValues(t *testing.T) {
	params := fsrs.DefaultParams()
	card := domain.Card{State: domain.Learning, Stability: 0.4, Difficulty: 6.81, LastReview: &t0}

	got := mustSchedule(t, card, domain.Easy, t0.Add(time.Minute))

	if got.Stability != params.InitialStability(domain.Easy) || got.Difficulty != params.InitialDifficulty(domain.Easy) {
		t.Errorf("Expected Easy initial values, but got S=%v D=%v", got.Stability, got.Difficulty)
	}
	if got.ScheduledDays != 5 {
		t.Errorf("Expected 5 scheduled days, but got %d", got.ScheduledDays)
	}
}

func TestReviewGoodGrowsInterval(t *testing.T) {
	card := reviewCard(10, 5, t0.Add(-10*day))

	got := mustSchedule(t, card, domain.Good, t0)

	if got.Stability <= card.Stability {
		t.Errorf("Expected stability to grow from %v, but got %v", card.Stability, got.Stability)
	}
	if got.ScheduledDays <= 10 {
		t.Errorf("Expected an interval longer than 10 days, but got %d", got.ScheduledDays)
	}
	if got.ScheduledDays > fsrs.DefaultParams().MaxInterval {
		t.Errorf("Interval %d exceeds the cap", got.ScheduledDays)
	}
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	card := reviewCard(10, 5, t0.Add(-3*day))
	before := card.Clone()

	_ = mustSchedule(t, card, domain.Hard, t0)

	if !reflect.DeepEqual(card, before) {
		t.Errorf("Expected input card to be unchanged, but got %+v", card)
	}
}

func TestScheduleDeterministic(t *testing.T) {
	card := reviewCard(7.3, 6.2, t0.Add(-9*day))
	for _, r := range domain.Ratings {
		a := mustSchedule(t, card, r, t0)
		b := mustSchedule(t, card, r, t0)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: repeated Schedule calls differ: %+v vs %+v", r, a, b)
		}
	}
}

func TestScheduleErrors(t *testing.T) {
	params := fsrs.DefaultParams()

	t.Run("invalid rating", func(t *testing.T) {
		for _, r := range []domain.Rating{0, 5, -1} {
			_, err := Schedule(domain.Card{State: domain.New}, r, params, t0)
			if !errors.Is(err, domain.ErrInvalidRating) {
				t.Errorf("Rating %d: expected ErrInvalidRating, but got %v", int(r), err)
			}
		}
	})

	t.Run("unknown state", func(t *testing.T) {
		_, err := Schedule(domain.Card{State: domain.State(9)}, domain.Good, params, t0)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState, but got %v", err)
		}
	})

	t.Run("review card without stability", func(t *testing.T) {
		_, err := Schedule(reviewCard(0, 5, t0), domain.Good, params, t0)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Expected ErrInvalidState, but got %v", err)
		}
	})

	t.Run("non-finite growth", func(t *testing.T) {
		p := fsrs.DefaultParams()
		p.W[8] = 1000
		_, err := Schedule(reviewCard(10, 5, t0.Add(-5*day)), domain.Good, p, t0)
		if !errors.Is(err, fsrs.ErrNonFiniteComputation) {
			t.Errorf("Expected ErrNonFiniteComputation, but got %v", err)
		}
	})

	t.Run("NaN stability", func(t *testing.T) {
		_, err := Schedule(reviewCard(math.NaN(), 5, t0.Add(-5*day)), domain.Good, params, t0)
		if !errors.Is(err, fsrs.ErrNonFiniteComputation) {
			t.Errorf("Expected ErrNonFiniteComputation, but got %v", err)
		}
	})

	t.Run("retention out of range", func(t *testing.T) {
		p := fsrs.DefaultParams()
		p.TargetRetention = 1.2
		_, err := Schedule(domain.Card{State: domain.New}, domain.Good, p, t0)
		if !errors.Is(err, fsrs.ErrInvalidParams) {
			t.Errorf("Expected ErrInvalidParams, but got %v", err)
		}
	})
}

func TestReviewLog(t *testing.T) {
	card := reviewCard(10, 5, t0.Add(-12*day))

	updated, log, err := Review(card, domain.Again, fsrs.DefaultParams(), t0)
	if err != nil {
		t.Fatalf("Review() returned an unexpected error: %v", err)
	}

	if log.CardHash != card.Hash || log.Rating != domain.Again || !log.ReviewedAt.Equal(t0) {
		t.Errorf("Unexpected log identity: %+v", log)
	}
	if log.StabilityBefore != 10 || log.StabilityAfter != updated.Stability {
		t.Errorf("Expected stability 10 -> %v, but got %v -> %v", updated.Stability, log.StabilityBefore, log.StabilityAfter)
	}
	if log.DifficultyBefore != 5 || log.DifficultyAfter != updated.Difficulty {
		t.Errorf("Expected difficulty 5 -> %v, but got %v -> %v", updated.Difficulty, log.DifficultyBefore, log.DifficultyAfter)
	}
	if log.StateBefore != domain.Review || log.StateAfter != domain.Relearning {
		t.Errorf("Expected REVIEW -> RELEARNING, but got %s -> %s", log.StateBefore, log.StateAfter)
	}
	if log.ScheduledDays != updated.ScheduledDays || log.ElapsedDays != 12 {
		t.Errorf("Unexpected day counts in log: %+v", log)
	}
}

func TestElapsedDays(t *testing.T) {
	testCases := []struct {
		name string
		last time.Time
		want int
	}{
		{"same instant", t0, 0},
		{"under a day", t0.Add(-23 * time.Hour), 0},
		{"exactly two days", t0.Add(-2 * day), 2},
		{"two and a half days", t0.Add(-60 * time.Hour), 2},
		{"last review in the future", t0.Add(3 * day), 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			card := reviewCard(5, 5, tc.last)
			if got := ElapsedDays(card, t0); got != tc.want {
				t.Errorf("Expected %d elapsed days, but got %d", tc.want, got)
			}
		})
	}

	if got := ElapsedDays(domain.Card{State: domain.New}, t0); got != 0 {
		t.Errorf("Expected 0 elapsed days for a new card, but got %d", got)
	}
}
