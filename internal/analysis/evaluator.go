// Package analysis evaluates position trajectories with a chess engine and
// assembles per-move reports.
package analysis

import (
	"context"
	"strings"

	"github.com/park285/pgn-report/internal/chess/uci"
	"github.com/park285/pgn-report/pkg/reportdto"
)

// MateScore is the centipawn value a forced mate is clamped to.
const MateScore = 1000

// Evaluator scores a single position given as FEN.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error)
}

type EvaluatorFunc func(ctx context.Context, fen string) (reportdto.Evaluation, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error) {
	return f(ctx, fen)
}

func whiteToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) < 2 || fields[1] != "b"
}

// fromEngine converts side-to-move engine output to white's point of view.
func fromEngine(fen string, resp uci.SearchResponse) reportdto.Evaluation {
	sign := 1
	if !whiteToMove(fen) {
		sign = -1
	}

	lines := make([]reportdto.Line, 0, len(resp.Lines))
	depth := 0
	for i, l := range resp.Lines {
		line := reportdto.Line{Move: l.Move, PV: l.Principal}
		if l.Mate != nil {
			m := sign * *l.Mate
			line.Mate = &m
			switch {
			case *l.Mate == 0:
				// side to move is checkmated
				line.CP = -sign * MateScore
			case m > 0:
				line.CP = MateScore
			default:
				line.CP = -MateScore
			}
		} else {
			line.CP = sign * l.CP
		}
		if i == 0 {
			depth = l.Depth
		}
		lines = append(lines, line)
	}

	ev := reportdto.Evaluation{BestMove: resp.BestMove, Depth: depth}
	if len(lines) > 0 {
		top := lines[0]
		ev.CP = top.CP
		ev.Mate = top.Mate
		ev.PV = top.PV
		if ev.BestMove == "" {
			ev.BestMove = top.Move
		}
	}
	if len(lines) > 1 {
		ev.Lines = lines
	}
	return ev
}
