package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks an invalid layout, identity or tuning value. Startup-fatal.
	ErrConfig = errors.New("invalid generator configuration")
	// ErrClockBeforeEpoch means the host clock reads earlier than the epoch.
	ErrClockBeforeEpoch = errors.New("clock reads before epoch")
	// ErrTimestampOverflow means the elapsed time no longer fits the timestamp field.
	ErrTimestampOverflow = errors.New("timestamp exceeds layout capacity")
	// ErrClockRegression means the clock moved backwards further than the tolerance.
	ErrClockRegression = errors.New("clock moved backwards")
	// ErrSequenceExhausted means the current millisecond has no sequence values left.
	ErrSequenceExhausted = errors.New("sequence exhausted for current millisecond")
)

// RegressionError reports how far, in milliseconds, the clock went back.
type RegressionError struct {
	Delta uint64
}

func (e *RegressionError) Error() string {
	return fmt.Sprintf("clock moved backwards %dms", e.Delta)
}

func (e *RegressionError) Is(target error) bool {
	return target == ErrClockRegression
}

// IsFatal reports whether err leaves the generator unable to issue any id.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfig) ||
		errors.Is(err, ErrClockBeforeEpoch) ||
		errors.Is(err, ErrTimestampOverflow)
}
