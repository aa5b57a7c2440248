package sampling

import "errors"

// Configuration errors, surfaced at construction time. Decision time never
// fails: runtime faults degrade to Drop and increment the fault counter.
var (
	ErrInvalidRate     = errors.New("sampling rate must be within [0.0, 1.0]")
	ErrInvalidLimit    = errors.New("max traces per second must be positive")
	ErrInvalidBounds   = errors.New("min rate must not exceed max rate")
	ErrInvalidInterval = errors.New("adjustment interval must be positive")
	ErrInvalidRule     = errors.New("priority rule is malformed")
	ErrNoChildren      = errors.New("composite sampler requires at least one child")
	ErrUnknownStrategy = errors.New("unknown sampling strategy")
)
