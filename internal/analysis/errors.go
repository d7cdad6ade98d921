package analysis

import (
	"errors"
	"fmt"
)

var (
	ErrMissingPositions  = errors.New("positions parameter is required")
	ErrInvalidPosition   = errors.New("invalid position")
	ErrInvalidFEN        = errors.New("invalid fen")
	ErrEngineUnavailable = errors.New("analysis engine unavailable")
	ErrEngineTimeout     = errors.New("analysis timed out")
)

// PositionError reports which submitted position failed validation.
type PositionError struct {
	Index  int
	Reason string
	Err    error
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("position %d: %s: %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("position %d: %s", e.Index, e.Reason)
}

func (e *PositionError) Unwrap() error { return e.Err }

func (e *PositionError) Is(target error) bool { return target == ErrInvalidPosition }
