package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
)

// Option is what answering with one rating would do to the card.
type Option struct {
	Rating domain.Rating
	Days   int           // scheduled days, 0 for a same-day step
	Step   time.Duration // delay when Days is 0
	Label  string
	Due    time.Time
}

// SchedulingOptions maps each rating to its outcome. It is computed per
// presented card and never persisted.
type SchedulingOptions map[domain.Rating]Option

// Preview schedules a throwaway copy of card once per rating. It has no side
// effects, so it can be called on every render with identical results.
func Preview(card domain.Card, params fsrs.Params, now time.Time) (SchedulingOptions, error) {
	options := make(SchedulingOptions, len(domain.Ratings))
	for _, r := range domain.Ratings {
		next, err := Schedule(card, r, params, now)
		if err != nil {
			return nil, fmt.Errorf("preview %s: %w", r, err)
		}
		var step time.Duration
		if next.ScheduledDays == 0 {
			step = next.DueDate.Sub(now)
		}
		options[r] = Option{
			Rating: r,
			Days:   next.ScheduledDays,
			Step:   step,
			Label:  FormatInterval(next.ScheduledDays, step),
			Due:    next.DueDate,
		}
	}
	return options, nil
}

// FormatInterval renders an interval for a rating button: "10m", "1d",
// "5d", "2w", "3mo", "1.2y". A zero-day interval is labelled by its step.
func FormatInterval(days int, step time.Duration) string {
	switch {
	case days <= 0:
		minutes := int(math.Round(step.Minutes()))
		if minutes < 1 {
			return "<1m"
		}
		if minutes >= 60 {
			return fmt.Sprintf("%dh", int(math.Round(step.Hours())))
		}
		return fmt.Sprintf("%dm", minutes)
	case days < 7:
		return fmt.Sprintf("%dd", days)
	case days < 30:
		return fmt.Sprintf("%dw", int(math.Round(float64(days)/7)))
	case days < 365:
		return fmt.Sprintf("%dmo", int(math.Round(float64(days)/30)))
	default:
		return fmt.Sprintf("%.1fy", float64(days)/365)
	}
}
