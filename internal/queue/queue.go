// Package queue selects and orders the cards for a study session.
package queue

import (
	"sort"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
)

// DefaultExamPullDays is how far, in days of urgency, a completely forgotten
// card is pulled forward when an exam date is set.
const DefaultExamPullDays = 30.0

// Options controls Build.
type Options struct {
	Now time.Time
	// ExamDate is a calendar date; only its year, month and day are used.
	// Nil, or a date not after Now, disables exam weighting.
	ExamDate *time.Time
	// ExamPullDays scales the exam weighting. Zero means DefaultExamPullDays.
	ExamPullDays float64
}

type entry struct {
	card    domain.Card
	index   int
	rank    int
	isNew   bool
	urgency float64
}

// Build returns the study queue for cards: every NEW card and every other
// card due at opts.Now. The order is total and deterministic:
//
//  1. priority tier, CRITICAL first
//  2. due cards before NEW cards of the same tier
//  3. urgency, most urgent first
//  4. position in the input
//
// Urgency is (DueDate - Now) in days. With an exam date it becomes
// (DueDate - Now) - ExamPullDays * (1 - R_exam), where R_exam is the
// card's projected retrievability on exam day, so weak material moves ahead.
//
// The input slice is not modified.
func Build(cards []domain.Card, opts Options) []domain.Card {
	exam, examOn := examInstant(opts)
	pull := opts.ExamPullDays
	if pull <= 0 {
		pull = DefaultExamPullDays
	}

	entries := make([]entry, 0, len(cards))
	for i, c := range cards {
		if !c.IsNew() && !c.IsDue(opts.Now) {
			continue
		}
		e := entry{
			card:    c.Clone(),
			index:   i,
			rank:    c.Priority.Rank(),
			isNew:   c.IsNew(),
			urgency: days(c.DueDate.Sub(opts.Now)),
		}
		if examOn {
			e.urgency -= pull * (1 - retrievabilityAt(c, exam))
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rank != b.rank {
			return a.rank > b.rank
		}
		if a.isNew != b.isNew {
			return !a.isNew
		}
		if a.urgency != b.urgency {
			return a.urgency < b.urgency
		}
		return a.index < b.index
	})

	out := make([]domain.Card, len(entries))
	for i, e := range entries {
		out[i] = e.card
	}
	return out
}

// examInstant returns the start of the exam day in Now's location.
func examInstant(opts Options) (time.Time, bool) {
	if opts.ExamDate == nil {
		return time.Time{}, false
	}
	loc := opts.Now.Location()
	y, m, d := opts.ExamDate.Date()
	exam := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if !exam.After(opts.Now) {
		return time.Time{}, false
	}
	return exam, true
}

// retrievabilityAt projects recall probability at t. Cards without a memory
// state count as fully forgotten.
func retrievabilityAt(c domain.Card, t time.Time) float64 {
	if c.IsNew() || c.LastReview == nil || c.Stability <= 0 {
		return 0
	}
	return fsrs.Retrievability(c.Stability, days(t.Sub(*c.LastReview)))
}

func days(d time.Duration) float64 {
	return d.Hours() / 24
}
