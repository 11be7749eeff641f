package engine

import (
	"errors"
	"fmt"

	"github.com/rowsync/rowsync/internal/model"
)

// DivergenceError is returned when a cascade exceeds the maximum
// propagation depth.
//
// The equality guard is the primary termination mechanism; the depth
// limit is a circuit breaker against rounding-drift oscillation. Hitting
// it means a propagation rule failed to converge, so the whole operation
// is surfaced as an error rather than looping.
type DivergenceError struct {
	Collection model.Collection // Collection of the patch that tripped the limit
	EntityID   string           // Target record of that patch
	Depth      int              // Cascade depth reached
	Limit      int              // Configured maximum depth
}

// Error implements the error interface.
func (e *DivergenceError) Error() string {
	return fmt.Sprintf("propagation diverged at %s/%s: depth %d exceeds limit %d",
		e.Collection, e.EntityID, e.Depth, e.Limit)
}

// IsDivergenceError reports whether err is a DivergenceError.
// Uses errors.As to handle wrapped errors.
func IsDivergenceError(err error) bool {
	var de *DivergenceError
	return errors.As(err, &de)
}
