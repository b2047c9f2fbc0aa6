package queue

import (
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// Counts summarises a deck for a dashboard.
type Counts struct {
	Total    int
	New      int
	Learning int // Learning and Relearning
	Review   int // Review cards due now
	Due      int // everything Build would admit
}

// Summarize counts cards by state as of now.
func Summarize(cards []domain.Card, now time.Time) Counts {
	var c Counts
	c.Total = len(cards)
	for _, card := range cards {
		switch card.State {
		case domain.New:
			c.New++
		case domain.Learning, domain.Relearning:
			c.Learning++
		case domain.Review:
			if card.IsDue(now) {
				c.Review++
			}
		}
		if card.IsNew() || card.IsDue(now) {
			c.Due++
		}
	}
	return c
}
