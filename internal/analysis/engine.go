package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/pgn-report/internal/chess/uci"
	"github.com/park285/pgn-report/internal/metrics"
	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/pkg/reportdto"
	"go.uber.org/zap"
)

// EngineEvaluator runs each evaluation on an exclusive pooled UCI session.
type EngineEvaluator struct {
	pool   *uci.Pool
	limits uci.Limits
}

func NewEngineEvaluator(pool *uci.Pool, limits uci.Limits) *EngineEvaluator {
	if limits.Depth <= 0 && limits.MoveTimeMillis <= 0 && limits.NodeCap <= 0 {
		limits.Depth = 14
	}
	return &EngineEvaluator{pool: pool, limits: limits}
}

func (e *EngineEvaluator) Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error) {
	start := time.Now()
	session, err := e.pool.Acquire(ctx)
	if err != nil {
		metrics.Default().RecordEvaluation("engine", "unavailable", time.Since(start))
		if ctx.Err() != nil {
			return reportdto.Evaluation{}, fmt.Errorf("%w: %w", ErrEngineTimeout, err)
		}
		return reportdto.Evaluation{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Limits: e.limits})
	if err != nil {
		releaseErr = err
		metrics.Default().RecordEvaluation("engine", "error", time.Since(start))
		obslog.L().Warn("engine search failed", zap.String("fen", fen), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return reportdto.Evaluation{}, fmt.Errorf("%w: %w", ErrEngineTimeout, err)
		}
		return reportdto.Evaluation{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	metrics.Default().RecordEvaluation("engine", "success", time.Since(start))
	return fromEngine(fen, resp), nil
}
