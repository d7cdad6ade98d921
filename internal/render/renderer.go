// Package render draws board positions as PNG images for report viewers.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSquareSize = 64
	MinSquareSize     = 16
	MaxSquareSize     = 128
)

var (
	ErrInvalidFEN  = errors.New("render: invalid fen")
	ErrInvalidMove = errors.New("render: invalid move")
)

// Move is a from/to pair used for overlays.
type Move struct {
	From nchess.Square
	To   nchess.Square
}

// Options controls what is drawn on top of the board.
type Options struct {
	LastMove   *Move
	BestMove   *Move
	Flip       bool
	SquareSize int
}

var (
	lightSquare       = color.RGBA{233, 207, 163, 255}
	darkSquare        = color.RGBA{187, 136, 96, 255}
	frameColor        = color.RGBA{40, 43, 58, 255}
	lastMoveFill      = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	bestMoveArrow     = color.NRGBA{R: 84, G: 180, B: 96, A: 170}
	coordinateTextClr = color.NRGBA{R: 214, G: 218, B: 236, A: 255}
)

// ParseMove reads a UCI move such as "e2e4" or "e7e8q". The promotion
// suffix is accepted and ignored.
func ParseMove(s string) (*Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, ok := parseSquare(s[0:2])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, ok := parseSquare(s[2:4])
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	if len(s) == 5 && !strings.ContainsRune("qrbn", rune(s[4])) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	return &Move{From: from, To: to}, nil
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

// RenderPNG draws the position described by fen.
func RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	board, err := boardFromFEN(fen)
	if err != nil {
		return nil, err
	}

	squareSize := opts.SquareSize
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	if squareSize < MinSquareSize {
		squareSize = MinSquareSize
	}
	if squareSize > MaxSquareSize {
		squareSize = MaxSquareSize
	}

	margin := squareSize / 2
	boardSize := squareSize * 8
	origin := image.Point{X: margin, Y: margin}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	l := layout{squareSize: squareSize, origin: origin, flip: opts.Flip}
	drawSquares(img, l)
	if opts.LastMove != nil {
		drawSquareOverlay(img, l.squareRect(opts.LastMove.From), lastMoveFill)
		drawSquareOverlay(img, l.squareRect(opts.LastMove.To), lastMoveFill)
	}
	if err := drawPieces(ctx, img, board, l); err != nil {
		return nil, err
	}
	if opts.BestMove != nil {
		drawArrow(img, l, opts.BestMove.From, opts.BestMove.To, bestMoveArrow)
	}
	drawCoordinates(img, l, margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func boardFromFEN(fen string) (*nchess.Board, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	game := nchess.NewGame(opt)
	return game.Position().Board(), nil
}

type layout struct {
	squareSize int
	origin     image.Point
	flip       bool
}

func (l layout) squareRect(sq nchess.Square) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	if l.flip {
		col, row = 7-col, 7-row
	}
	x := l.origin.X + col*l.squareSize
	y := l.origin.Y + row*l.squareSize
	return image.Rect(x, y, x+l.squareSize, y+l.squareSize)
}

func (l layout) center(sq nchess.Square) pointF {
	r := l.squareRect(sq)
	return pointF{
		X: float64(r.Min.X) + float64(l.squareSize)/2,
		Y: float64(r.Min.Y) + float64(l.squareSize)/2,
	}
}

var (
	allRanks = []nchess.Rank{nchess.Rank1, nchess.Rank2, nchess.Rank3, nchess.Rank4, nchess.Rank5, nchess.Rank6, nchess.Rank7, nchess.Rank8}
	allFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, l layout) {
	for _, rank := range allRanks {
		for _, file := range allFiles {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, l.squareRect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(ctx context.Context, dst imagedraw.Image, board *nchess.Board, l layout) error {
	for sq, piece := range board.SquareMap() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if piece == nchess.NoPiece {
			continue
		}
		img, err := pieceImage(piece, l.squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, l.squareRect(sq), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(dst imagedraw.Image, l layout, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
		Src:  image.NewUniform(coordinateTextClr),
	}
	ascent := face.Metrics().Ascent.Ceil()
	boardEnd := l.origin.Y + 8*l.squareSize

	for _, rank := range allRanks {
		c := l.center(nchess.NewSquare(nchess.FileA, rank))
		drawCenteredText(drawer, rank.String(), l.origin.X-margin/2, int(c.Y)+ascent/2)
	}
	for _, file := range allFiles {
		c := l.center(nchess.NewSquare(file, nchess.Rank1))
		drawCenteredText(drawer, file.String(), int(c.X), boardEnd+(margin+ascent)/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
