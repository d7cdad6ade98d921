package trajectory

import (
	"errors"
	"fmt"

	"github.com/park285/pgn-report/internal/pgn"
)

var (
	ErrEmptyInput  = errors.New("game record is empty")
	ErrIllegalMove = errors.New("game record contains an illegal move")
)

// IllegalMoveError identifies the first token that did not apply.
type IllegalMoveError struct {
	Ply int
	SAN string
	Err error
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q at ply %d", e.SAN, e.Ply)
}

func (e *IllegalMoveError) Unwrap() error { return e.Err }

func (e *IllegalMoveError) Is(target error) bool { return target == ErrIllegalMove }

// Kind classifies errors returned by this package and its parse step.
type Kind int

const (
	KindNone Kind = iota
	KindEmptyInput
	KindInvalidRecord
	KindIllegalMove
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindEmptyInput:
		return "empty_input"
	case KindInvalidRecord:
		return "invalid_record"
	case KindIllegalMove:
		return "illegal_move"
	default:
		return "other"
	}
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrIllegalMove):
		return KindIllegalMove
	case errors.Is(err, pgn.ErrInvalid):
		return KindInvalidRecord
	default:
		return KindOther
	}
}
