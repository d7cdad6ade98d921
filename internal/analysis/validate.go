package analysis

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/pgn-report/internal/trajectory"
)

// ValidateFEN reports whether fen describes a loadable position.
func ValidateFEN(fen string) error {
	if strings.TrimSpace(fen) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	if _, err := nchess.FEN(fen); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return nil
}

// validatePositions checks every FEN and, where a move descriptor is
// present, that it is legal from the previous position and lands on the
// stated placement.
func validatePositions(positions []trajectory.Position) error {
	for i, p := range positions {
		if err := ValidateFEN(p.FEN); err != nil {
			return &PositionError{Index: i, Reason: "invalid fen", Err: err}
		}
		if i == 0 || p.Move == nil {
			continue
		}
		opt, err := nchess.FEN(positions[i-1].FEN)
		if err != nil {
			return &PositionError{Index: i - 1, Reason: "invalid fen", Err: err}
		}
		game := nchess.NewGame(opt)
		if err := applyMove(game, p.Move.UCI, p.FEN); err != nil {
			return &PositionError{Index: i, Reason: fmt.Sprintf("illegal move %q", p.Move.UCI), Err: err}
		}
		if placement(game.FEN()) != placement(p.FEN) {
			return &PositionError{Index: i, Reason: fmt.Sprintf("move %q does not produce this position", p.Move.UCI)}
		}
	}
	return nil
}

// applyMove plays a trajectory move on game. A promotion written without its
// piece letter is resolved by the placement of the position it produced.
func applyMove(game *nchess.Game, uci, nextFEN string) error {
	err := game.PushNotationMove(uci, nchess.UCINotation{}, nil)
	if err == nil || len(uci) != 4 {
		return err
	}
	pos := game.Position()
	want := placement(nextFEN)
	moves := pos.ValidMoves()
	for i := range moves {
		m := &moves[i]
		if m.Promo() == nchess.NoPieceType || m.S1().String()+m.S2().String() != uci {
			continue
		}
		if pos.Update(m).Board().String() == want {
			return game.Move(m, nil)
		}
	}
	return err
}

func placement(fen string) string {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}
