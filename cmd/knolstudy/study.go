package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/conorfennell/knolstudy/internal/domain"
	"github.com/conorfennell/knolstudy/internal/scheduler"
	"github.com/conorfennell/knolstudy/internal/session"
)

// studier is the part of study.Service the terminal loop drives.
type studier interface {
	Start() (int, error)
	Current() (domain.Card, bool)
	Preview() (scheduler.SchedulingOptions, error)
	Answer(r domain.Rating) (domain.Card, error)
	Skip() error
	Progress() session.Progress
	Complete() bool
	Continue() (int, error)
	End() (domain.SessionRecord, error)
}

// interact runs one session over in/out. Input is line based: Enter
// reveals, 1-4 (or again/hard/good/easy) rates, s skips and q quits.
// Once a session has started it is always ended, even when a step fails.
func interact(ctx context.Context, svc studier, in io.Reader, out io.Writer) error {
	n, err := svc.Start()
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(out, "No cards due. Come back later or run 'knolstudy sync'.")
		return nil
	}
	fmt.Fprintf(out, "Studying %d cards.\n", n)

	lines := bufio.NewScanner(in)
	read := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if ctx.Err() != nil || !lines.Scan() {
			return "", false
		}
		return strings.TrimSpace(strings.ToLower(lines.Text())), true
	}

	loopErr := drill(svc, read, out)

	rec, err := svc.End()
	if err != nil {
		return errors.Join(loopErr, err)
	}
	acc := 0
	if rec.CardsStudied > 0 {
		acc = rec.CardsCorrect * 100 / rec.CardsStudied
	}
	fmt.Fprintf(out, "\nSession over: %d reviewed, %d%% correct, %d new, %d min.\n",
		rec.CardsStudied, acc, rec.NewCardsStudied, rec.DurationMinutes)
	return loopErr
}

// drill presents cards until the user quits, input runs out or there is
// nothing left to study.
func drill(svc studier, read func(prompt string) (string, bool), out io.Writer) error {
	quit := false
	for !quit {
		card, ok := svc.Current()
		if !ok {
			if !svc.Complete() {
				break
			}
			answer, ok := read("\nQueue finished. Continue with more cards? [y/N] ")
			if !ok || answer != "y" {
				break
			}
			added, err := svc.Continue()
			if err != nil {
				return err
			}
			if added == 0 {
				fmt.Fprintln(out, "Nothing more to study.")
				break
			}
			continue
		}

		p := svc.Progress()
		fmt.Fprintf(out, "\n[%d/%d] %s\n", p.CurrentIndex, p.Total, card.Question)
		if card.Priority != "" && card.Priority != domain.PriorityNormal {
			fmt.Fprintf(out, "(%s)\n", card.Priority)
		}
		input, ok := read("Enter to reveal, s to skip, q to quit: ")
		switch {
		case !ok || input == "q":
			quit = true
			continue
		case input == "s":
			if err := svc.Skip(); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(out, "\n%s\n", card.Answer)
		if card.Context != "" {
			fmt.Fprintf(out, "-- %s\n", card.Context)
		}
		options, err := svc.Preview()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, buttons(options))

		for {
			input, ok := read("Rating: ")
			if !ok || input == "q" {
				quit = true
				break
			}
			r, err := domain.ParseRating(input)
			if err != nil {
				fmt.Fprintln(out, "Enter 1-4.")
				continue
			}
			if _, err := svc.Answer(r); err != nil {
				return err
			}
			break
		}
	}

	return nil
}

func buttons(options scheduler.SchedulingOptions) string {
	parts := make([]string, 0, len(domain.Ratings))
	for _, r := range domain.Ratings {
		parts = append(parts, fmt.Sprintf("%d %s (%s)", int(r), r, options[r].Label))
	}
	return strings.Join(parts, "   ")
}
