package fsrs

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/conorfennell/knolstudy/internal/domain"
)

func TestNextRecallStability(t *testing.T) {
	params := DefaultParams()
	stability := 10.0
	difficulty := 5.0

	// S' = 10 * (1 + e^1.49 * (11-5) * 10^(-0.14) * (e^(0.94 * (1-0.9)) - 1))
	// S' = 10 * (1 + 4.437 * 6 * 0.7244 * 0.0986)
	// S' = 10 * 2.9009 = 29.01
	expected := 29.01

	newStability := params.NextRecallStability(stability, difficulty, 0.9, domain.Good)

	if math.Abs(newStability-expected) > 0.01 {
		t.Errorf("Expected new stability to be around %.2f, but got %.2f", expected, newStability)
	}
}

func TestRecallStabilityOrdering(t *testing.T) {
	params := DefaultParams()

	hard := params.NextRecallStability(10, 5, 0.9, domain.Hard)
	good := params.NextRecallStability(10, 5, 0.9, domain.Good)
	easy := params.NextRecallStability(10, 5, 0.9, domain.Easy)

	if !(hard > 10 && good > hard && easy > good) {
		t.Errorf("Expected 10 < hard < good < easy, but got hard=%.3f good=%.3f easy=%.3f", hard, good, easy)
	}

	t.Run("lower retrievability grows more", func(t *testing.T) {
		fresh := params.NextRecallStability(10, 5, 0.95, domain.Good)
		stale := params.NextRecallStability(10, 5, 0.6, domain.Good)
		if stale <= fresh {
			t.Errorf("Expected stale recall (%.3f) to beat fresh recall (%.3f)", stale, fresh)
		}
	})

	t.Run("higher difficulty grows less", func(t *testing.T) {
		easyCard := params.NextRecallStability(10, 2, 0.9, domain.Good)
		hardCard := params.NextRecallStability(10, 9, 0.9, domain.Good)
		if hardCard >= easyCard {
			t.Errorf("Expected difficulty 9 (%.3f) to grow less than difficulty 2 (%.3f)", hardCard, easyCard)
		}
	})

	t.Run("never decreases", func(t *testing.T) {
		for _, s := range []float64{0.1, 1, 10, 100, 1000} {
			for _, r := range []float64{0.2, 0.9, 1} {
				for _, rating := range []domain.Rating{domain.Hard, domain.Good, domain.Easy} {
					if got := params.NextRecallStability(s, 10, r, rating); got < s {
						t.Errorf("S=%v R=%v %v: stability fell to %v", s, r, rating, got)
					}
				}
			}
		}
	})
}

func TestInitialValues(t *testing.T) {
	params := DefaultParams()

	if got := params.InitialStability(domain.Good); got != 2.4 {
		t.Errorf("Expected initial Good stability 2.4, but got %v", got)
	}
	prev := 0.0
	for _, r := range domain.Ratings {
		s := params.InitialStability(r)
		if s <= prev {
			t.Errorf("Expected initial stability to grow with rating, %v gave %v after %v", r, s, prev)
		}
		prev = s
	}

	testCases := []struct {
		rating   domain.Rating
		expected float64
	}{
		{domain.Again, 6.81},
		{domain.Hard, 5.87},
		{domain.Good, 4.93},
		{domain.Easy, 3.99},
	}
	for _, tc := range testCases {
		t.Run(tc.rating.String(), func(t *testing.T) {
			if got := params.InitialDifficulty(tc.rating); math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Expected initial difficulty %.2f, but got %.4f", tc.expected, got)
			}
		})
	}
}

func TestRetrievability(t *testing.T) {
	for _, s := range []float64{0.1, 1, 2.4, 10, 100, 1000} {
		if got := Retrievability(s, 0); got != 1 {
			t.Errorf("S=%v: expected retrievability 1 at t=0, but got %v", s, got)
		}
		if got := Retrievability(s, s); math.Abs(got-0.9) > 1e-12 {
			t.Errorf("S=%v: expected retrievability 0.9 at t=S, but got %v", s, got)
		}
		prev := Retrievability(s, 0)
		for day := 1; day <= 400; day++ {
			r := Retrievability(s, float64(day))
			if r >= prev {
				t.Fatalf("S=%v: retrievability not strictly decreasing at day %d (%v >= %v)", s, day, r, prev)
			}
			if r < 0 || r > 1 {
				t.Fatalf("S=%v: retrievability %v out of [0,1]", s, r)
			}
			prev = r
		}
	}
}

func TestIntervalForTarget(t *testing.T) {
	t.Run("stability equals interval at 90%", func(t *testing.T) {
		if got := IntervalForTarget(10, 0.9, 365); got != 10 {
			t.Errorf("Expected interval 10, but got %d", got)
		}
	})

	t.Run("capped at max interval", func(t *testing.T) {
		if got := IntervalForTarget(5000, 0.9, 365); got != 365 {
			t.Errorf("Expected interval 365, but got %d", got)
		}
	})

	t.Run("at least one day", func(t *testing.T) {
		if got := IntervalForTarget(0.1, 0.99, 365); got != 1 {
			t.Errorf("Expected interval 1, but got %d", got)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		const maxInterval = 36500
		for _, s := range []float64{1.5, 2.4, 5.8, 10, 37.3, 120, 900} {
			for _, r := range []float64{0.7, 0.8, 0.85, 0.9, 0.95} {
				raw := s / Factor * (math.Pow(r, 1/Decay) - 1)
				if raw < 1 || raw > maxInterval {
					continue
				}
				ivl := IntervalForTarget(s, r, maxInterval)
				if got := Retrievability(s, float64(ivl)); got < r-1e-9 {
					t.Errorf("S=%v r=%v: R(%d) = %v dropped below target", s, r, ivl, got)
				}
				if got := Retrievability(s, float64(ivl+1)); got >= r {
					t.Errorf("S=%v r=%v: R(%d) = %v should be below target", s, r, ivl+1, got)
				}
			}
		}
	})
}

func TestNextLapseStability(t *testing.T) {
	params := DefaultParams()

	// Review card with S=10, D=5 forgotten after 12 days.
	r := Retrievability(10, 12)
	got := params.NextLapseStability(10, 5, r)
	if math.Abs(got-2.935) > 0.001 {
		t.Errorf("Expected lapse stability around 2.935, but got %.4f", got)
	}

	for _, s := range []float64{0.05, 0.1, 0.5, 1, 10, 100, 1000} {
		for d := 1.0; d <= 10; d++ {
			for _, r := range []float64{0, 0.3, 0.9, 1} {
				got := params.NextLapseStability(s, d, r)
				if got > s {
					t.Errorf("S=%v D=%v R=%v: lapse raised stability to %v", s, d, r, got)
				}
				if got <= 0 {
					t.Errorf("S=%v D=%v R=%v: lapse produced non-positive stability %v", s, d, r, got)
				}
			}
		}
	}
}

func TestNextDifficulty(t *testing.T) {
	params := DefaultParams()

	t.Run("Again makes it harder", func(t *testing.T) {
		if got := params.NextDifficulty(5, domain.Again); math.Abs(got-5.203) > 1e-9 {
			t.Errorf("Expected difficulty 5.203, but got %v", got)
		}
	})

	t.Run("Easy makes it easier", func(t *testing.T) {
		if got := params.NextDifficulty(5, domain.Easy); got >= 5 {
			t.Errorf("Expected difficulty to drop below 5, but got %v", got)
		}
	})

	t.Run("stays bounded over chained reviews", func(t *testing.T) {
		sequences := map[string]func(i int) domain.Rating{
			"all again": func(int) domain.Rating { return domain.Again },
			"all easy":  func(int) domain.Rating { return domain.Easy },
			"random": func() func(int) domain.Rating {
				rng := rand.New(rand.NewSource(42))
				return func(int) domain.Rating { return domain.Rating(rng.Intn(4) + 1) }
			}(),
		}
		for name, next := range sequences {
			for _, start := range []float64{1, 5, 10} {
				d := start
				for i := 0; i < 50; i++ {
					d = params.NextDifficulty(d, next(i))
					if d < MinDifficulty || d > MaxDifficulty {
						t.Fatalf("%s from %v: difficulty %v left [1,10] at review %d", name, start, d, i+1)
					}
				}
			}
		}
	})
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("Expected default params to be valid, but got %v", err)
	}

	testCases := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"retention of one", func(p *Params) { p.TargetRetention = 1 }},
		{"retention of zero", func(p *Params) { p.TargetRetention = 0 }},
		{"zero max interval", func(p *Params) { p.MaxInterval = 0 }},
		{"zero learning step", func(p *Params) { p.LearningStep = 0 }},
		{"negative weight", func(p *Params) { p.W[3] = -1 }},
		{"NaN weight", func(p *Params) { p.W[8] = math.NaN() }},
		{"infinite weight", func(p *Params) { p.W[10] = math.Inf(1) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, but got %v", err)
			}
		})
	}
}

func TestCheckFinite(t *testing.T) {
	if err := CheckFinite("stability", 3.2); err != nil {
		t.Errorf("Expected no error for a finite value, but got %v", err)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := CheckFinite("stability", v); !errors.Is(err, ErrNonFiniteComputation) {
			t.Errorf("Expected ErrNonFiniteComputation for %v, but got %v", v, err)
		}
	}
}
