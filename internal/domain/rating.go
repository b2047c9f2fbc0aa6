package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRating is returned for any rating outside Again..Easy.
var ErrInvalidRating = errors.New("domain: invalid rating")

// Rating is the user's response to a card review.
// The values correspond to FSRS ratings:
// 1: Again (Incorrect)
// 2: Hard
// 3: Good
// 4: Easy
type Rating int

const (
	Again Rating = 1
	Hard  Rating = 2
	Good  Rating = 3
	Easy  Rating = 4
)

// Ratings lists the four ratings in ascending order.
var Ratings = [...]Rating{Again, Hard, Good, Easy}

var ratingNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

// Validate returns ErrInvalidRating if r is not one of the four ratings.
func (r Rating) Validate() error {
	if r < Again || r > Easy {
		return fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return nil
}

// Passed reports whether the rating counts as a correct answer.
func (r Rating) Passed() bool {
	return r >= Good
}

func (r Rating) String() string {
	if r.Validate() == nil {
		return ratingNames[r]
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating accepts either the digit ("3") or the name ("good").
func ParseRating(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		r := Rating(n)
		return r, r.Validate()
	}
	for _, r := range Ratings {
		if strings.EqualFold(ratingNames[r], s) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}
