package trajectory

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/park285/pgn-report/internal/pgn"
)

var opera = []string{
	"e4", "e5", "Nf3", "d6", "d4", "Bg4", "dxe5", "Bxf3", "Qxf3", "dxe5",
	"Bc4", "Nf6", "Qb3", "Qe7", "Nc3", "c6", "Bg5", "b5", "Nxb5", "cxb5",
	"Bxb5+", "Nbd7", "O-O-O", "Rd8", "Rxd7", "Rxd7", "Rd1", "Qe6", "Bxd7+", "Nxd7",
	"Qb8+", "Nxb8", "Rd8#",
}

func TestBuildEmptyGame(t *testing.T) {
	traj, err := Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(traj) != 1 {
		t.Fatalf("expected 1 position, got %d", len(traj))
	}
	if traj[0].FEN != StartFEN {
		t.Fatalf("start FEN = %q", traj[0].FEN)
	}
	if traj[0].Move != nil {
		t.Fatalf("start position must not carry a move")
	}
}

func TestBuildSingleMove(t *testing.T) {
	traj, err := Build(pgn.Tokens("e4"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(traj) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(traj))
	}
	mv := traj[1].Move
	if mv == nil || mv.SAN != "e4" || mv.UCI != "e2e4" {
		t.Fatalf("unexpected move descriptor: %+v", mv)
	}
	fields := strings.Fields(traj[1].FEN)
	if len(fields) != 6 || fields[1] != "b" {
		t.Fatalf("expected black to move, got %q", traj[1].FEN)
	}
	if fields[0] != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" {
		t.Fatalf("unexpected placement %q", fields[0])
	}
}

func TestBuildIllegalMove(t *testing.T) {
	traj, err := Build(pgn.Tokens("e4", "e4"))
	if traj != nil {
		t.Fatalf("no trajectory expected on failure, got %d positions", len(traj))
	}
	var ime *IllegalMoveError
	if !errors.As(err, &ime) {
		t.Fatalf("expected IllegalMoveError, got %v", err)
	}
	if ime.Ply != 1 || ime.SAN != "e4" {
		t.Fatalf("unexpected error detail: %+v", ime)
	}
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("IllegalMoveError should match ErrIllegalMove")
	}
	if KindOf(err) != KindIllegalMove {
		t.Fatalf("kind = %v", KindOf(err))
	}
}

func TestBuildLengthAndDeterminism(t *testing.T) {
	tokens := pgn.Tokens(opera...)
	a, err := Build(tokens)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(a) != len(tokens)+1 || a.Moves() != len(tokens) {
		t.Fatalf("len = %d, want %d", len(a), len(tokens)+1)
	}
	b, err := Build(tokens)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Fatalf("trajectories differ between runs")
	}
}

func TestBuildPrefix(t *testing.T) {
	tokens := pgn.Tokens(opera...)
	full, err := Build(tokens)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for k := 0; k <= len(tokens); k++ {
		part, err := Build(tokens[:k])
		if err != nil {
			t.Fatalf("Build prefix %d: %v", k, err)
		}
		if len(part) != k+1 {
			t.Fatalf("prefix %d: len %d", k, len(part))
		}
		for i := range part {
			if part[i].FEN != full[i].FEN {
				t.Fatalf("prefix %d differs at %d", k, i)
			}
			if (part[i].Move == nil) != (full[i].Move == nil) {
				t.Fatalf("prefix %d move presence differs at %d", k, i)
			}
			if part[i].Move != nil && *part[i].Move != *full[i].Move {
				t.Fatalf("prefix %d move differs at %d", k, i)
			}
		}
	}
}

func TestBuildKeepsSANAsWritten(t *testing.T) {
	traj, err := Build(pgn.Tokens(opera...))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	last := traj[len(traj)-1]
	if last.Move.SAN != "Rd8#" || last.Move.UCI != "d1d8" {
		t.Fatalf("last move = %+v", last.Move)
	}
	castle := traj[23].Move
	if castle.SAN != "O-O-O" || castle.UCI != "e1c1" {
		t.Fatalf("castling = %+v", castle)
	}
}

func TestBuildZeroCastlingAndPromotion(t *testing.T) {
	sans := []string{"e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "0-0", "Nf6"}
	traj, err := Build(pgn.Tokens(sans...))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if mv := traj[7].Move; mv.SAN != "0-0" || mv.UCI != "e1g1" {
		t.Fatalf("castling with zeros = %+v", mv)
	}

	promo := []string{"a4", "h5", "a5", "h4", "a6", "h3", "axb7", "hxg2", "bxa8=Q", "gxh1Q"}
	traj, err = Build(pgn.Tokens(promo...))
	if err != nil {
		t.Fatalf("Build promotion line: %v", err)
	}
	if mv := traj[9].Move; mv.UCI != "b7a8q" {
		t.Fatalf("white promotion uci = %q", mv.UCI)
	}
	if mv := traj[10].Move; mv.SAN != "gxh1Q" || mv.UCI != "g2h1q" {
		t.Fatalf("black promotion = %+v", mv)
	}
}

type scriptedBoard struct {
	fail  int
	calls int
}

func (b *scriptedBoard) FEN() string { return "start" }

func (b *scriptedBoard) ApplySAN(san string) (Applied, error) {
	b.calls++
	if b.calls-1 == b.fail {
		return Applied{}, errors.New("no such move")
	}
	return Applied{UCI: "a1a2", FEN: san}, nil
}

func TestBuildWithStopsAtFirstFailure(t *testing.T) {
	board := &scriptedBoard{fail: 2}
	_, err := BuildWith(func() Board { return board }, pgn.Tokens("a", "b", "c", "d", "e"))
	var ime *IllegalMoveError
	if !errors.As(err, &ime) || ime.Ply != 2 || ime.SAN != "c" {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.calls != 3 {
		t.Fatalf("board should not see moves after the failure, calls=%d", board.calls)
	}
}

func TestBuildWithFreshBoardPerCall(t *testing.T) {
	created := 0
	newBoard := func() Board {
		created++
		return &scriptedBoard{fail: -1}
	}
	for i := 0; i < 3; i++ {
		if _, err := BuildWith(newBoard, pgn.Tokens("x")); err != nil {
			t.Fatalf("BuildWith: %v", err)
		}
	}
	if created != 3 {
		t.Fatalf("expected a board per call, got %d", created)
	}
}

func TestFromPGN(t *testing.T) {
	g, err := FromPGN("[White \"Morphy\"]\n\n1. e4 e5 2. Nf3 *")
	if err != nil {
		t.Fatalf("FromPGN: %v", err)
	}
	if g.Record.Tag("White") != "Morphy" || len(g.Positions) != 4 {
		t.Fatalf("unexpected game: %+v", g)
	}
}

func TestFromPGNEmpty(t *testing.T) {
	_, err := FromPGN("")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if KindOf(err) != KindEmptyInput {
		t.Fatalf("kind = %v", KindOf(err))
	}
}

func TestFromPGNInvalid(t *testing.T) {
	_, err := FromPGN("1. e4 {oops")
	if KindOf(err) != KindInvalidRecord {
		t.Fatalf("kind = %v (%v)", KindOf(err), err)
	}
	_, err = FromPGN("1. e4 e5 2. Ke3")
	var ime *IllegalMoveError
	if !errors.As(err, &ime) || ime.Ply != 2 {
		t.Fatalf("expected illegal move at ply 2, got %v", err)
	}
}

func TestNormalizeSAN(t *testing.T) {
	cases := map[string]string{
		"Qh4+":   "Qh4",
		"Rd8#":   "Rd8",
		"0-0":    "O-O",
		"0-0-0+": "O-O-O",
		"gxh1Q":  "gxh1=Q",
		"e8=N":   "e8=N",
		"Nbd7":   "Nbd7",
	}
	for in, want := range cases {
		if got := normalizeSAN(in); got != want {
			t.Fatalf("normalizeSAN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromPGNEnPassantMarker(t *testing.T) {
	g, err := FromPGN("1. e4 Nf6 2. e5 d5 3. exd6 e.p. *")
	if err != nil {
		t.Fatalf("FromPGN: %v", err)
	}
	last := g.Positions[len(g.Positions)-1]
	if last.Move.SAN != "exd6" || last.Move.UCI != "e5d6" {
		t.Fatalf("en passant capture = %+v", last.Move)
	}
	if !strings.HasPrefix(last.FEN, "rnbqkb1r/ppp1pppp/3P1n2/8/8/8/PPPP1PPP/RNBQKBNR b") {
		t.Fatalf("captured pawn still on the board: %q", last.FEN)
	}
}

func TestFromPGNNullMoveIsIllegal(t *testing.T) {
	_, err := FromPGN("1. d4 -- 2. c4 1-0")
	var ime *IllegalMoveError
	if !errors.As(err, &ime) || ime.Ply != 1 || ime.SAN != "--" {
		t.Fatalf("expected illegal null move at ply 1, got %v", err)
	}
	if KindOf(err) != KindIllegalMove {
		t.Fatalf("kind = %v", KindOf(err))
	}
}
