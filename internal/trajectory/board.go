package trajectory

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Applied describes a move that a Board accepted.
type Applied struct {
	From string
	To   string
	UCI  string
	FEN  string
}

// Board is the move-application capability the builder drives. A Board is
// owned by exactly one Build call.
type Board interface {
	FEN() string
	ApplySAN(san string) (Applied, error)
}

type gameBoard struct {
	game *nchess.Game
}

// NewBoard returns a board at the standard starting position.
func NewBoard() Board {
	return &gameBoard{game: nchess.NewGame()}
}

func (b *gameBoard) FEN() string { return b.game.FEN() }

func (b *gameBoard) ApplySAN(san string) (Applied, error) {
	pos := b.game.Position()
	move, err := nchess.AlgebraicNotation{}.Decode(pos, normalizeSAN(san))
	if err != nil {
		return Applied{}, fmt.Errorf("decode %s: %w", san, err)
	}
	uci := strings.ToLower(nchess.UCINotation{}.Encode(pos, move))
	if err := b.game.Move(move, nil); err != nil {
		return Applied{}, fmt.Errorf("apply %s: %w", san, err)
	}
	return Applied{
		From: move.S1().String(),
		To:   move.S2().String(),
		UCI:  uci,
		FEN:  b.game.FEN(),
	}, nil
}

// normalizeSAN maps the spellings PGN writers use onto the form the
// notation decoder matches: letter-O castling, "=" before a promotion piece,
// and no check or mate suffix.
func normalizeSAN(san string) string {
	s := strings.TrimRight(strings.TrimSpace(san), "+#")
	switch s {
	case "0-0":
		return "O-O"
	case "0-0-0":
		return "O-O-O"
	}
	n := len(s)
	if n >= 3 && strings.ContainsRune("QRBN", rune(s[n-1])) && s[n-2] >= '1' && s[n-2] <= '8' && s[0] >= 'a' && s[0] <= 'h' {
		return s[:n-1] + "=" + s[n-1:]
	}
	return s
}
