package tracearena

import (
	"fmt"

	"github.com/synaptik/tracearena/internal/arena"
)

// ErrRegionReserve is returned by New when the backing memory regions
// cannot be reserved. This is fatal: the simulation cannot start, and
// nothing recovers it at runtime.
var ErrRegionReserve = arena.ErrRegionReserve

// ErrInvalidConfig reports a Config field that cannot describe a runnable
// core.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Field  string
	Reason string
	cause  error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }
