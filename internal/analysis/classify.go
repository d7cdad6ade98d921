package analysis

import (
	"math"

	"github.com/park285/pgn-report/pkg/reportdto"
)

// Thresholds are centipawn losses at which a move is downgraded.
type Thresholds struct {
	Inaccuracy int
	Mistake    int
	Blunder    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{Inaccuracy: 50, Mistake: 100, Blunder: 200}
}

const excellentLoss = 20

// Classify grades a move from its centipawn loss. A move matching the
// engine's previous best move is always best.
func (t Thresholds) Classify(loss int, playedBest bool) reportdto.Classification {
	switch {
	case playedBest:
		return reportdto.ClassBest
	case loss >= t.Blunder:
		return reportdto.ClassBlunder
	case loss >= t.Mistake:
		return reportdto.ClassMistake
	case loss >= t.Inaccuracy:
		return reportdto.ClassInaccuracy
	case loss < excellentLoss:
		return reportdto.ClassExcellent
	default:
		return reportdto.ClassGood
	}
}

func clampCP(cp int) int {
	if cp > MateScore {
		return MateScore
	}
	if cp < -MateScore {
		return -MateScore
	}
	return cp
}

// WinPercent maps a centipawn score to an expected score in [0, 100].
func WinPercent(cp int) float64 {
	return 50 + 50*(2/(1+math.Exp(-0.00368208*float64(clampCP(cp))))-1)
}

// MoveAccuracy rates a move from the mover's win percentage before and
// after it.
func MoveAccuracy(before, after float64) float64 {
	delta := before - after
	if delta < 0 {
		delta = 0
	}
	acc := 103.1668*math.Exp(-0.04354*delta) - 3.1669
	return math.Max(0, math.Min(100, acc))
}

// moveLoss is the centipawn loss for the side that moved, never negative.
func moveLoss(before, after int, white bool) int {
	before, after = clampCP(before), clampCP(after)
	loss := after - before
	if white {
		loss = before - after
	}
	if loss < 0 {
		return 0
	}
	return loss
}

func povCP(cp int, white bool) int {
	if white {
		return cp
	}
	return -cp
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
