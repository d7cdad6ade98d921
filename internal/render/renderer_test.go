package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestRenderPNGSize(t *testing.T) {
	b, err := RenderPNG(context.Background(), startFEN, Options{SquareSize: 32})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, b)
	want := 32*8 + 32
	if img.Bounds().Dx() != want || img.Bounds().Dy() != want {
		t.Fatalf("size = %v, want %dx%d", img.Bounds(), want, want)
	}
}

func TestRenderPNGClampsSquareSize(t *testing.T) {
	b, err := RenderPNG(context.Background(), startFEN, Options{SquareSize: 1000})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if got := decode(t, b).Bounds().Dx(); got != MaxSquareSize*8+MaxSquareSize {
		t.Fatalf("width = %d", got)
	}
}

func TestRenderPNGInvalidFEN(t *testing.T) {
	for _, fen := range []string{"", "not a fen", "8/8/8 w - - 0 1"} {
		if _, err := RenderPNG(context.Background(), fen, Options{}); !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("fen %q: err = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestRenderPNGCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderPNG(ctx, startFEN, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLastMoveOverlayChangesSquares(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	plain, err := RenderPNG(context.Background(), fen, Options{SquareSize: 32})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	mv, err := ParseMove("e2e4")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	marked, err := RenderPNG(context.Background(), fen, Options{SquareSize: 32, LastMove: mv, BestMove: &Move{From: nchess.E7, To: nchess.E5}})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}

	l := layout{squareSize: 32, origin: image.Point{X: 16, Y: 16}}
	r := l.squareRect(nchess.E2)
	a := decode(t, plain).At(r.Min.X+1, r.Min.Y+1)
	b := decode(t, marked).At(r.Min.X+1, r.Min.Y+1)
	if a == b {
		t.Fatalf("e2 corner unchanged by last-move overlay: %v", a)
	}
}

func TestSquareRectFlip(t *testing.T) {
	l := layout{squareSize: 10}
	if got := l.squareRect(nchess.A1); got != image.Rect(0, 70, 10, 80) {
		t.Fatalf("a1 = %v", got)
	}
	l.flip = true
	if got := l.squareRect(nchess.A1); got != image.Rect(70, 0, 80, 10) {
		t.Fatalf("flipped a1 = %v", got)
	}
	if got := l.squareRect(nchess.H8); got != image.Rect(0, 70, 10, 80) {
		t.Fatalf("flipped h8 = %v", got)
	}
}

func TestParseMove(t *testing.T) {
	mv, err := ParseMove("e7e8q")
	if err != nil {
		t.Fatalf("ParseMove: %v", err)
	}
	if mv.From != nchess.E7 || mv.To != nchess.E8 {
		t.Fatalf("move = %+v", mv)
	}
	for _, bad := range []string{"", "e2", "e2e9", "i2e4", "e7e8k", "e2e4e5"} {
		if _, err := ParseMove(bad); !errors.Is(err, ErrInvalidMove) {
			t.Fatalf("ParseMove(%q) err = %v", bad, err)
		}
	}
}

func TestAllPieceAssetsRasterize(t *testing.T) {
	for _, c := range []nchess.Color{nchess.White, nchess.Black} {
		for _, pt := range []nchess.PieceType{nchess.King, nchess.Queen, nchess.Rook, nchess.Bishop, nchess.Knight, nchess.Pawn} {
			p := nchess.NewPiece(pt, c)
			img, err := pieceImage(p, 24)
			if err != nil {
				t.Fatalf("pieceImage(%v): %v", p, err)
			}
			if img.Bounds().Dx() != 24 {
				t.Fatalf("piece size = %v", img.Bounds())
			}
		}
	}
}
