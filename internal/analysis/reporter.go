package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/pgn-report/internal/metrics"
	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/internal/trajectory"
	"github.com/park285/pgn-report/pkg/reportdto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// ProgressFunc is called after each position is evaluated. Calls are
// serialized and done increases by one each time.
type ProgressFunc func(done, total int)

type Reporter struct {
	eval        Evaluator
	thresholds  Thresholds
	concurrency int
	now         func() time.Time
	newID       func() string
}

type ReporterOption func(*Reporter)

func WithThresholds(t Thresholds) ReporterOption {
	return func(r *Reporter) { r.thresholds = t }
}

// WithConcurrency bounds parallel evaluations; values below 1 keep the
// default.
func WithConcurrency(n int) ReporterOption {
	return func(r *Reporter) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

func WithIDGenerator(f func() string) ReporterOption {
	return func(r *Reporter) { r.newID = f }
}

func NewReporter(eval Evaluator, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		eval:        eval,
		thresholds:  DefaultThresholds(),
		concurrency: defaultConcurrency,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate evaluates every position and grades each move. Either a full
// report or an error is returned, never a partial report.
func (r *Reporter) Generate(ctx context.Context, positions []trajectory.Position, onProgress ProgressFunc) (*reportdto.Report, error) {
	start := time.Now()
	report, err := r.generate(ctx, positions, onProgress)
	status := "success"
	if err != nil {
		status = "error"
		obslog.L().Warn("report generation failed",
			zap.Int("positions", len(positions)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
	metrics.Default().RecordReport(status, len(positions), time.Since(start))
	return report, err
}

func (r *Reporter) generate(ctx context.Context, positions []trajectory.Position, onProgress ProgressFunc) (*reportdto.Report, error) {
	if len(positions) == 0 {
		return nil, ErrMissingPositions
	}
	if err := validatePositions(positions); err != nil {
		return nil, err
	}

	evals, err := r.evaluateAll(ctx, positions, onProgress)
	if err != nil {
		return nil, err
	}
	return r.assemble(positions, evals), nil
}

func (r *Reporter) evaluateAll(ctx context.Context, positions []trajectory.Position, onProgress ProgressFunc) ([]reportdto.Evaluation, error) {
	total := len(positions)
	evals := make([]reportdto.Evaluation, total)

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range positions {
		g.Go(func() error {
			ev, err := r.eval.Evaluate(gctx, positions[i].FEN)
			if err != nil {
				return fmt.Errorf("evaluate position %d: %w", i, err)
			}
			evals[i] = ev

			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrEngineTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrEngineTimeout, err)
		}
		return nil, err
	}
	return evals, nil
}

func (r *Reporter) assemble(positions []trajectory.Position, evals []reportdto.Evaluation) *reportdto.Report {
	report := &reportdto.Report{
		ID:        r.newID(),
		CreatedAt: r.now().UTC(),
		Opening:   openingFor(positions),
		Positions: make([]reportdto.PositionReport, len(positions)),
	}

	var whiteAcc, blackAcc []float64
	for i, p := range positions {
		pr := reportdto.PositionReport{Ply: i, FEN: p.FEN, Evaluation: evals[i]}
		report.Positions[i] = pr
		if i == 0 || p.Move == nil {
			continue
		}

		pr.Move = &reportdto.MoveDescriptor{SAN: p.Move.SAN, UCI: p.Move.UCI}
		white := whiteToMove(positions[i-1].FEN)
		prev := evals[i-1]
		playedBest := prev.BestMove != "" && prev.BestMove == p.Move.UCI

		loss := moveLoss(prev.CP, evals[i].CP, white)
		if playedBest {
			loss = 0
		}
		pr.CPLoss = loss
		pr.BestMove = prev.BestMove
		pr.Classification = r.thresholds.Classify(loss, playedBest)

		before := WinPercent(povCP(clampCP(prev.CP), white))
		after := WinPercent(povCP(clampCP(evals[i].CP), white))
		if playedBest && after < before {
			after = before
		}
		acc := MoveAccuracy(before, after)
		pr.Accuracy = round1(acc)

		side := &report.Summary.Black
		if white {
			side = &report.Summary.White
			whiteAcc = append(whiteAcc, acc)
		} else {
			blackAcc = append(blackAcc, acc)
		}
		tally(side, pr.Classification)
		report.Positions[i] = pr
	}
	report.Summary.White.Accuracy = round1(mean(whiteAcc))
	report.Summary.Black.Accuracy = round1(mean(blackAcc))
	return report
}

func tally(s *reportdto.SideSummary, c reportdto.Classification) {
	s.Moves++
	switch c {
	case reportdto.ClassBest:
		s.Best++
	case reportdto.ClassExcellent:
		s.Excellent++
	case reportdto.ClassGood:
		s.Good++
	case reportdto.ClassInaccuracy:
		s.Inaccuracies++
	case reportdto.ClassMistake:
		s.Mistakes++
	case reportdto.ClassBlunder:
		s.Blunders++
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
