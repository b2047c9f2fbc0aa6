package scheduler

import (
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/fsrs"
)

func TestPreviewNewCard(t *testing.T) {
	card := domain.Card{Hash: "p1", State: domain.New, DueDate: t0}

	options, err := Preview(card, fsrs.DefaultParams(), t0)
	if err != nil {
		t.Fatalf("Preview() returned an unexpected error: %v", err)
	}

	expected := map[domain.Rating]struct {
		days  int
		label string
	}{
		domain.Again: {0, "1m"},
		domain.Hard:  {1, "1d"},
		domain.Good:  {2, "2d"},
		domain.Easy:  {5, "5d"},
	}
	if len(options) != 4 {
		t.Fatalf("Expected 4 options, but got %d", len(options))
	}
	for r, want := range expected {
		got := options[r]
		if got.Rating != r || got.Days != want.days || got.Label != want.label {
			t.Errorf("%s: expected %d days %q, but got %d days %q", r, want.days, want.label, got.Days, got.Label)
		}
	}
	if options[domain.Again].Step != time.Minute {
		t.Errorf("Expected Again step of 1m, but got %v", options[domain.Again].Step)
	}
}

func TestPreviewIsPure(t *testing.T) {
	card := reviewCard(12, 4.5, t0.Add(-15*day))
	before := card.Clone()

	first, err := Preview(card, fsrs.DefaultParams(), t0)
	if err != nil {
		t.Fatalf("Preview() returned an unexpected error: %v", err)
	}
	second, err := Preview(card, fsrs.DefaultParams(), t0)
	if err != nil {
		t.Fatalf("Preview() returned an unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical previews, but got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(card, before) {
		t.Errorf("Preview mutated the card: %+v", card)
	}
	if !(first[domain.Hard].Days <= first[domain.Good].Days && first[domain.Good].Days <= first[domain.Easy].Days) {
		t.Errorf("Expected Hard <= Good <= Easy intervals, but got %d, %d, %d",
			first[domain.Hard].Days, first[domain.Good].Days, first[domain.Easy].Days)
	}
}

func TestPreviewPropagatesErrors(t *testing.T) {
	_, err := Preview(domain.Card{State: domain.State(7)}, fsrs.DefaultParams(), t0)
	if err == nil {
		t.Error("Expected an error for an unknown state, but got nil")
	}
}

func TestFormatInterval(t *testing.T) {
	testCases := []struct {
		days int
		step time.Duration
		want string
	}{
		{0, 10 * time.Minute, "10m"},
		{0, time.Minute, "1m"},
		{0, 20 * time.Second, "<1m"},
		{0, 2 * time.Hour, "2h"},
		{1, 0, "1d"},
		{6, 0, "6d"},
		{7, 0, "1w"},
		{29, 0, "4w"},
		{30, 0, "1mo"},
		{200, 0, "7mo"},
		{365, 0, "1.0y"},
		{800, 0, "2.2y"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			if got := FormatInterval(tc.days, tc.step); got != tc.want {
				t.Errorf("FormatInterval(%d, %v): expected %q, but got %q", tc.days, tc.step, tc.want, got)
			}
		})
	}
}
