// Package knol gives every card a content address.
//
// The hash covers question, answer and context only. Priority and memory
// state are not content, so re-tagging a card keeps its review history.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/knolstudy/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// Each field is lowercased, its line endings are normalized, runs of blanks
// inside a line collapse to one space and surrounding whitespace is dropped.
func Normalize(card domain.Card) string {
	parts := []string{card.Question, card.Answer, card.Context}
	for i, part := range parts {
		parts[i] = normalizePart(part)
	}

	// Join with a newline so "question" and "answer" can never run together.
	return strings.Join(parts, "\n")
}

func normalizePart(part string) string {
	p := strings.ToLower(part)
	p = strings.ReplaceAll(p, "\r\n", "\n")
	lines := strings.Split(strings.TrimSpace(p), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}

// Stamp sets the hash of every card and drops later duplicates of the same
// content. It returns the kept cards and the number dropped.
func Stamp(cards []domain.Card) ([]domain.Card, int) {
	seen := make(map[string]bool, len(cards))
	out := make([]domain.Card, 0, len(cards))
	for _, c := range cards {
		c.Hash = Hash(c)
		if seen[c.Hash] {
			continue
		}
		seen[c.Hash] = true
		out = append(out, c)
	}
	return out, len(cards) - len(out)
}
