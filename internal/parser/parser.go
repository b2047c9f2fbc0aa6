// Package parser extracts flashcards from markdown decks.
//
// A card starts at a "Q:" line. "A:" and "C:" lines begin the answer and
// context, and may continue over following lines. A "P:" line tags the card
// being written with a priority; placed before the first "Q:" of a card it
// applies to that card. A line of "---" ends the current card.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knolstudy/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	priorityPrefix = "P:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

var blockPrefixes = []struct {
	prefix string
	state  state
}{
	{questionPrefix, readingQuestion},
	{answerPrefix, readingAnswer},
	{contextPrefix, readingContext},
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Cards without
// a question are dropped. An unknown priority tag is an error.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var (
		cards   []domain.Card
		current domain.Card
		block   []string
		lineNo  int
	)
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch st {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Question != "" {
			if current.Priority == "" {
				current.Priority = domain.PriorityNormal
			}
			cards = append(cards, current)
		}
		current = domain.Card{}
		st = seeking
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if line == separator {
			finishCard()
			continue
		}

		if rest, ok := cutPrefix(line, priorityPrefix); ok {
			p, err := domain.ParsePriority(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			flushBlock()
			current.Priority = p
			st = seeking
			continue
		}

		matched := false
		for _, bp := range blockPrefixes {
			rest, ok := cutPrefix(line, bp.prefix)
			if !ok {
				continue
			}
			matched = true
			flushBlock()
			if bp.state == readingQuestion && (st != seeking || current.Question != "") {
				// A new question always starts a new card. Keep a priority
				// tag that was written above it.
				p := current.Priority
				if current.Question != "" {
					p = ""
				}
				finishCard()
				current.Priority = p
			}
			st = bp.state
			block = append(block, rest)
			break
		}
		if !matched && st != seeking {
			block = append(block, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func cutPrefix(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}
