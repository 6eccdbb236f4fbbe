// Package errs collects the sentinel errors shared by every backend.
package errs

import "errors"

var (
	// ErrInvalidRange is returned when a normalized range has from > to.
	ErrInvalidRange = errors.New("temporalcol: invalid range: from > to")

	// ErrInvalidInterval is returned when an interval's end precedes its start.
	ErrInvalidInterval = errors.New("temporalcol: invalid interval: end < start")

	// ErrInvalidBucket is returned when a bucketing interval is not positive.
	ErrInvalidBucket = errors.New("temporalcol: invalid bucket interval: must be > 0")

	// ErrConstructionInvalid is returned by constructors given a non-positive
	// capacity or window size.
	ErrConstructionInvalid = errors.New("temporalcol: invalid construction option")

	// ErrEmptyContainer is returned by the non-Try Pop/Dequeue forms on an
	// empty container; their TryXxx forms report !ok instead.
	ErrEmptyContainer = errors.New("temporalcol: container is empty")

	// ErrUnspecifiedKind is returned when a wall-clock input lacks an offset
	// and the configured policy is Reject.
	ErrUnspecifiedKind = errors.New("temporalcol: time input has unspecified kind")
)
