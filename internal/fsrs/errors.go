package fsrs

import "errors"

var (
	// ErrNonFiniteComputation means the model produced NaN or ±Inf. It points
	// at a parameter-tuning defect and is never clamped away.
	ErrNonFiniteComputation = errors.New("fsrs: non-finite computation")
	// ErrInvalidParams is returned when Params fail validation.
	ErrInvalidParams = errors.New("fsrs: invalid parameters")
)
