package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/pgn-report/internal/analysis"
	"github.com/park285/pgn-report/internal/report"
	"github.com/park285/pgn-report/internal/trajectory"
	"github.com/park285/pgn-report/pkg/reportdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scholarsMate = `[Event "Casual"]
[White "A"]
[Black "B"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0`

func constantEvaluator(cp int) analysis.Evaluator {
	return analysis.EvaluatorFunc(func(_ context.Context, fen string) (reportdto.Evaluation, error) {
		if err := analysis.ValidateFEN(fen); err != nil {
			return reportdto.Evaluation{}, err
		}
		return reportdto.Evaluation{CP: cp, Depth: 10}, nil
	})
}

func newTestRouter(t *testing.T, eval analysis.Evaluator) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Reporter:        analysis.NewReporter(eval, analysis.WithConcurrency(2)),
		Evaluator:       eval,
		Reports:         report.NewMemoryRepository(),
		AnalysisTimeout: 5 * time.Second,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestParseReturnsPositions(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))
	rec := do(t, h, http.MethodPost, "/parse", reportdto.ParseRequest{PGN: scholarsMate})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeBody[reportdto.ParseResponse](t, rec)
	require.Len(t, resp.Positions, 8)
	assert.Equal(t, trajectory.StartFEN, resp.Positions[0].FEN)
	assert.Nil(t, resp.Positions[0].Move)
	assert.Equal(t, &reportdto.MoveDescriptor{SAN: "e4", UCI: "e2e4"}, resp.Positions[1].Move)
	assert.Equal(t, &reportdto.MoveDescriptor{SAN: "Qxf7#", UCI: "h5f7"}, resp.Positions[7].Move)
	assert.Equal(t, "1-0", resp.Result)
	assert.Equal(t, "Casual", resp.Tags["Event"])
}

func TestParseStartElementHasNoMoveKey(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))
	rec := do(t, h, http.MethodPost, "/parse", reportdto.ParseRequest{PGN: "1. d4 *"})
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Positions []map[string]json.RawMessage `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Positions, 2)
	_, hasMove := raw.Positions[0]["move"]
	assert.False(t, hasMove)
	_, hasMove = raw.Positions[1]["move"]
	assert.True(t, hasMove)
}

func TestParseErrors(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))
	cases := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing pgn", reportdto.ParseRequest{}, http.StatusBadRequest, "PGN is required."},
		{"blank pgn", reportdto.ParseRequest{PGN: "   \n"}, http.StatusBadRequest, "PGN is required."},
		{"malformed json", `{"pgn":`, http.StatusBadRequest, "Request body must be valid JSON."},
		{"syntax", reportdto.ParseRequest{PGN: "1. e4 {never closed"}, http.StatusBadRequest, "Invalid PGN."},
		{"illegal move", reportdto.ParseRequest{PGN: "1. e4 e5 2. Ke3 *"}, http.StatusBadRequest, "PGN contains illegal moves."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/parse", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.message, decodeBody[reportdto.ErrorResponse](t, rec).Message)
		})
	}
}

func TestParseRejectsOversizedBody(t *testing.T) {
	h := NewRouter(Deps{MaxPGNBytes: 64})
	rec := do(t, h, http.MethodPost, "/parse", reportdto.ParseRequest{PGN: strings.Repeat("1. e4 e5 ", 40)})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "PGN exceeds 64 bytes.", decodeBody[reportdto.ErrorResponse](t, rec).Message)
}

func TestReportRoundTrip(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(25))
	parsed := decodeBody[reportdto.ParseResponse](t, do(t, h, http.MethodPost, "/parse", reportdto.ParseRequest{PGN: "1. e4 e5 2. Nf3 Nc6 *"}))

	rec := do(t, h, http.MethodPost, "/report", reportdto.ReportRequest{Positions: parsed.Positions})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeBody[reportdto.ReportResponse](t, rec)
	require.NotNil(t, created.Results)
	require.Len(t, created.Results.Positions, 5)
	assert.NotEmpty(t, created.Results.ID)
	assert.Equal(t, 2, created.Results.Summary.White.Moves)
	assert.Equal(t, 2, created.Results.Summary.Black.Moves)

	rec = do(t, h, http.MethodGet, "/report/"+created.Results.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fetched := decodeBody[reportdto.ReportResponse](t, rec)
	assert.Equal(t, created.Results.ID, fetched.Results.ID)
	assert.Len(t, fetched.Results.Positions, 5)
}

func TestReportErrors(t *testing.T) {
	failing := analysis.EvaluatorFunc(func(context.Context, string) (reportdto.Evaluation, error) {
		return reportdto.Evaluation{}, errors.New("engine exploded")
	})
	h := newTestRouter(t, failing)

	rec := do(t, h, http.MethodPost, "/report", reportdto.ReportRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Positions parameter is required.", decodeBody[reportdto.ErrorResponse](t, rec).Message)

	bad := []reportdto.Position{{FEN: "not a fen"}}
	rec = do(t, h, http.MethodPost, "/report", reportdto.ReportRequest{Positions: bad})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Positions contain an invalid entry.", decodeBody[reportdto.ErrorResponse](t, rec).Message)

	good := []reportdto.Position{{FEN: trajectory.StartFEN}}
	rec = do(t, h, http.MethodPost, "/report", reportdto.ReportRequest{Positions: good})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	msg := decodeBody[reportdto.ErrorResponse](t, rec).Message
	assert.Equal(t, "Failed to generate report.", msg)
	assert.NotContains(t, msg, "exploded")
}

func TestGetReportNotFound(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))
	rec := do(t, h, http.MethodGet, "/report/missing-id", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Report missing-id not found.", decodeBody[reportdto.ErrorResponse](t, rec).Message)
}

func TestEvaluate(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(42))

	rec := do(t, h, http.MethodPost, "/evaluate", reportdto.EvaluateRequest{FEN: trajectory.StartFEN})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 42, decodeBody[reportdto.Evaluation](t, rec).CP)

	rec = do(t, h, http.MethodPost, "/evaluate", reportdto.EvaluateRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FEN is required.", decodeBody[reportdto.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPost, "/evaluate", reportdto.EvaluateRequest{FEN: "8/8/8 w"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid FEN.", decodeBody[reportdto.ErrorResponse](t, rec).Message)
}

func TestEvaluateEngineFailureIsGeneric(t *testing.T) {
	eval := analysis.EvaluatorFunc(func(context.Context, string) (reportdto.Evaluation, error) {
		return reportdto.Evaluation{}, analysis.ErrEngineUnavailable
	})
	h := newTestRouter(t, eval)
	rec := do(t, h, http.MethodPost, "/evaluate", reportdto.EvaluateRequest{FEN: trajectory.StartFEN})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to evaluate position.", decodeBody[reportdto.ErrorResponse](t, rec).Message)
}

func TestBoardPNG(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))

	rec := do(t, h, http.MethodGet, "/board.png?fen="+urlFEN(trajectory.StartFEN)+"&lastmove=e2e4&flip=1&size=20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 20*8+20, img.Bounds().Dx())

	for _, q := range []string{"", "?fen=garbage", "?fen=" + urlFEN(trajectory.StartFEN) + "&lastmove=z9", "?fen=" + urlFEN(trajectory.StartFEN) + "&size=big"} {
		rec := do(t, h, http.MethodGet, "/board.png"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, "Invalid board request.", decodeBody[reportdto.ErrorResponse](t, rec).Message)
	}
}

func urlFEN(fen string) string {
	return strings.ReplaceAll(fen, " ", "%20")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[reportdto.HealthResponse](t, rec).Status)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pgn_report_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(t, constantEvaluator(0))
	rec := do(t, h, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
