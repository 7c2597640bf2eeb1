package ledger

import (
	"time"
)

// Clock exposes ledger time. Deadlines are compared against it, so
// engines stay deterministic under test by swapping in a fake.
type Clock interface {
	// Now returns the current ledger time as a Unix timestamp.
	Now() uint64
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func NewSystemClock() SystemClock {
	return SystemClock{}
}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}
