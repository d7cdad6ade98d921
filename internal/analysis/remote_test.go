package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/pgn-report/pkg/reportdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	ev  reportdto.Evaluation
	err error
}

func (s stubClient) Evaluate(context.Context, string) (reportdto.Evaluation, error) {
	return s.ev, s.err
}

func TestRemoteEvaluatorPassesThrough(t *testing.T) {
	r := NewRemoteEvaluator(stubClient{ev: reportdto.Evaluation{CP: 40, BestMove: "d2d4"}})
	ev, err := r.Evaluate(context.Background(), whiteFEN)
	require.NoError(t, err)
	assert.Equal(t, 40, ev.CP)
}

func TestRemoteEvaluatorErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bad request", &reportdto.APIError{Status: 400, Message: "Invalid FEN."}, ErrInvalidFEN},
		{"server error", &reportdto.APIError{Status: 503}, ErrEngineUnavailable},
		{"transport", errors.New("connection refused"), ErrEngineUnavailable},
		{"deadline", context.DeadlineExceeded, ErrEngineTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRemoteEvaluator(stubClient{err: tt.err}).Evaluate(context.Background(), whiteFEN)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
