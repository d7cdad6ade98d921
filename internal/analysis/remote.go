package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/park285/pgn-report/internal/metrics"
	"github.com/park285/pgn-report/pkg/reportdto"
)

// RemoteClient evaluates a position on another instance of this service.
type RemoteClient interface {
	Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error)
}

// RemoteEvaluator maps remote failures onto this package's error kinds.
type RemoteEvaluator struct {
	client RemoteClient
}

func NewRemoteEvaluator(client RemoteClient) *RemoteEvaluator {
	return &RemoteEvaluator{client: client}
}

func (r *RemoteEvaluator) Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error) {
	start := time.Now()
	ev, err := r.client.Evaluate(ctx, fen)
	if err == nil {
		metrics.Default().RecordEvaluation("remote", "success", time.Since(start))
		return ev, nil
	}
	metrics.Default().RecordEvaluation("remote", "error", time.Since(start))

	var apiErr *reportdto.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest:
		return reportdto.Evaluation{}, fmt.Errorf("%w: %s", ErrInvalidFEN, apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return reportdto.Evaluation{}, fmt.Errorf("%w: %w", ErrEngineTimeout, err)
	default:
		return reportdto.Evaluation{}, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
}
