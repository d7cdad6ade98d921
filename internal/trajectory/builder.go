// Package trajectory turns an ordered move list into the sequence of board
// positions it passes through.
package trajectory

import (
	"errors"
	"fmt"

	"github.com/park285/pgn-report/internal/pgn"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// MoveDescriptor names the move that led to a position, in SAN as written
// and in UCI coordinates with a promotion suffix.
type MoveDescriptor struct {
	SAN string `json:"san"`
	UCI string `json:"uci"`
}

// Position is one board snapshot. Move is nil for the starting position.
type Position struct {
	FEN  string          `json:"fen"`
	Move *MoveDescriptor `json:"move,omitempty"`
}

// Trajectory is the start position followed by one position per move.
type Trajectory []Position

// Moves returns the number of applied moves.
func (t Trajectory) Moves() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Game is a parsed record together with its trajectory.
type Game struct {
	Record    *pgn.Record
	Positions Trajectory
}

// Build applies tokens in order from the standard starting position.
func Build(tokens []pgn.MoveToken) (Trajectory, error) {
	return BuildWith(NewBoard, tokens)
}

// BuildWith is Build with a caller-supplied board constructor. The board is
// created once per call and dropped on return.
func BuildWith(newBoard func() Board, tokens []pgn.MoveToken) (Trajectory, error) {
	board := newBoard()
	out := make(Trajectory, 0, len(tokens)+1)
	out = append(out, Position{FEN: board.FEN()})

	for i, tok := range tokens {
		applied, err := board.ApplySAN(tok.SAN)
		if err != nil {
			return nil, &IllegalMoveError{Ply: i, SAN: tok.SAN, Err: err}
		}
		out = append(out, Position{
			FEN:  applied.FEN,
			Move: &MoveDescriptor{SAN: tok.SAN, UCI: applied.UCI},
		})
	}
	return out, nil
}

// FromPGN parses text and builds the trajectory of its first game. Missing
// text fails with ErrEmptyInput before any board is created.
func FromPGN(text string) (*Game, error) {
	rec, err := pgn.Parse(text)
	if err != nil {
		if errors.Is(err, pgn.ErrEmpty) || errors.Is(err, pgn.ErrNoGame) {
			return nil, fmt.Errorf("%w: %w", ErrEmptyInput, err)
		}
		return nil, err
	}
	positions, err := Build(rec.Moves)
	if err != nil {
		return nil, err
	}
	return &Game{Record: rec, Positions: positions}, nil
}
