// Package httpapi is the HTTP boundary of the report service: JSON in and
// out over a chi router.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/park285/pgn-report/internal/analysis"
	"github.com/park285/pgn-report/internal/metrics"
	"github.com/park285/pgn-report/internal/msgcat"
	"github.com/park285/pgn-report/internal/report"
	"github.com/park285/pgn-report/internal/trajectory"
	"github.com/park285/pgn-report/pkg/reportdto"
)

const defaultMaxBodyBytes int64 = 256 << 10

// ReportGenerator is satisfied by *analysis.Reporter.
type ReportGenerator interface {
	Generate(ctx context.Context, positions []trajectory.Position, onProgress analysis.ProgressFunc) (*reportdto.Report, error)
}

type Deps struct {
	Reporter  ReportGenerator
	Evaluator analysis.Evaluator
	Reports   report.Repository
	Messages  *msgcat.Catalog
	Metrics   *metrics.Collector

	MaxPGNBytes     int64
	AnalysisTimeout time.Duration
}

type handler struct {
	reporter  ReportGenerator
	evaluator analysis.Evaluator
	reports   report.Repository
	msgs      *msgcat.Catalog
	metrics   *metrics.Collector

	maxBody int64
	timeout time.Duration
}

// NewRouter wires every endpoint. Missing optional deps fall back to an
// in-memory repository, the embedded catalog and the default collector.
func NewRouter(d Deps) http.Handler {
	h := &handler{
		reporter:  d.Reporter,
		evaluator: d.Evaluator,
		reports:   d.Reports,
		msgs:      d.Messages,
		metrics:   d.Metrics,
		maxBody:   d.MaxPGNBytes,
		timeout:   d.AnalysisTimeout,
	}
	if h.reports == nil {
		h.reports = report.NewMemoryRepository()
	}
	if h.msgs == nil {
		h.msgs = msgcat.Default()
	}
	if h.metrics == nil {
		h.metrics = metrics.Default()
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(prometheusMiddleware(h.metrics))

	r.Post("/parse", h.parse)
	r.Post("/report", h.createReport)
	r.Get("/report/stream", h.streamReport)
	r.Get("/report/{id}", h.getReport)
	r.Post("/evaluate", h.evaluate)
	r.Get("/board.png", h.board)
	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, reportdto.ErrorResponse{Message: http.StatusText(http.StatusNotFound)})
	})
	return r
}

// analysisContext bounds one report or evaluation.
func (h *handler) analysisContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
