package fsrs

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

// Weights is the FSRS-4.5 parameter vector.
//
//	w0..w3   initial stability for Again, Hard, Good, Easy
//	w4       baseline difficulty (difficulty of a first Good)
//	w5       difficulty step per rating
//	w6       mean-reversion weight toward w4
//	w7       unused by this model, kept so tuned vectors load unchanged
//	w8..w10  stability growth on recall
//	w11..w14 stability after a lapse
//	w15      hard penalty
//	w16      easy bonus
type Weights [17]float64

// DefaultWeights are tuned for medical study content.
var DefaultWeights = Weights{
	0.4, 0.6, 2.4, 5.8,
	4.93, 0.94, 0.86, 0.01,
	1.49, 0.14, 0.94,
	2.18, 0.05, 0.34, 1.26,
	0.29, 2.61,
}

// Params holds everything the model and the scheduler need. It is passed
// explicitly into every call; there is no package-level mutable state.
type Params struct {
	W               Weights       `validate:"dive,gt=0"`
	TargetRetention float64       `validate:"gt=0,lt=1"`
	MaxInterval     int           `validate:"gte=1"`
	LearningStep    time.Duration `validate:"gt=0"`
	RelearningStep  time.Duration `validate:"gt=0"`
}

// DefaultParams provides the defaults: 90% retention, one year cap,
// a one minute learning step and a ten minute relearning step.
func DefaultParams() Params {
	return Params{
		W:               DefaultWeights,
		TargetRetention: 0.9,
		MaxInterval:     365,
		LearningStep:    time.Minute,
		RelearningStep:  10 * time.Minute,
	}
}

var validate = validator.New()

// Validate checks the ranges of every field and that all weights are finite.
func (p Params) Validate() error {
	for i, w := range p.W {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: w[%d] = %v is not finite", ErrInvalidParams, i, w)
		}
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
