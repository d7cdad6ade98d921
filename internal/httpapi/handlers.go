package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/park285/pgn-report/internal/analysis"
	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/internal/render"
	"github.com/park285/pgn-report/internal/trajectory"
	"github.com/park285/pgn-report/pkg/reportdto"
	"go.uber.org/zap"
)

func (h *handler) parse(w http.ResponseWriter, r *http.Request) {
	var req reportdto.ParseRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		h.writeError(w, r, err, "parse.invalid", map[string]any{"Limit": h.maxBody})
		return
	}

	game, err := trajectory.FromPGN(req.PGN)
	if err != nil {
		h.writeError(w, r, err, "parse.invalid", nil)
		return
	}

	writeJSON(w, http.StatusOK, reportdto.ParseResponse{
		Positions: toDTO(game.Positions),
		Tags:      game.Record.TagMap(),
		Result:    game.Record.Result,
	})
}

func (h *handler) createReport(w http.ResponseWriter, r *http.Request) {
	var req reportdto.ReportRequest
	if err := decodeJSON(w, r, h.reportBodyLimit(), &req); err != nil {
		h.writeError(w, r, err, "report.failed", map[string]any{"Limit": h.reportBodyLimit()})
		return
	}

	rep, err := h.generate(r, req.Positions, nil)
	if err != nil {
		h.writeError(w, r, err, "report.failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, reportdto.ReportResponse{Results: rep})
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := h.reports.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "report.failed", map[string]any{"ID": id})
		return
	}
	writeJSON(w, http.StatusOK, reportdto.ReportResponse{Results: rep})
}

func (h *handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req reportdto.EvaluateRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		h.writeError(w, r, err, "evaluate.failed", map[string]any{"Limit": h.maxBody})
		return
	}
	if strings.TrimSpace(req.FEN) == "" {
		writeJSON(w, http.StatusBadRequest, reportdto.ErrorResponse{Message: h.msgs.Text("evaluate.fen_required", nil)})
		return
	}
	if err := analysis.ValidateFEN(req.FEN); err != nil {
		h.writeError(w, r, err, "evaluate.failed", nil)
		return
	}
	if h.evaluator == nil {
		h.writeError(w, r, analysis.ErrEngineUnavailable, "evaluate.failed", nil)
		return
	}

	ctx, cancel := h.analysisContext(r.Context())
	defer cancel()
	ev, err := h.evaluator.Evaluate(ctx, req.FEN)
	if err != nil {
		h.writeError(w, r, err, "evaluate.failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *handler) board(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := render.Options{Flip: parseFlag(q.Get("flip"))}

	if v := strings.TrimSpace(q.Get("size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: size %q", errInvalidQuery, v), "board.invalid", nil)
			return
		}
		opts.SquareSize = n
	}
	for param, dst := range map[string]**render.Move{"lastmove": &opts.LastMove, "best": &opts.BestMove} {
		v := strings.TrimSpace(q.Get(param))
		if v == "" {
			continue
		}
		mv, err := render.ParseMove(v)
		if err != nil {
			h.writeError(w, r, err, "board.invalid", nil)
			return
		}
		*dst = mv
	}

	png, err := render.RenderPNG(r.Context(), q.Get("fen"), opts)
	if err != nil {
		h.writeError(w, r, err, "request.internal", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		obslog.L().Warn("write board png failed", zap.Error(err))
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, reportdto.HealthResponse{Status: "ok"})
}

// generate runs the reporter under the analysis deadline and stores the
// result. A storage failure is logged; the report is still returned.
func (h *handler) generate(r *http.Request, positions []reportdto.Position, onProgress analysis.ProgressFunc) (*reportdto.Report, error) {
	if len(positions) == 0 {
		return nil, analysis.ErrMissingPositions
	}
	if h.reporter == nil {
		return nil, analysis.ErrEngineUnavailable
	}

	ctx, cancel := h.analysisContext(r.Context())
	defer cancel()
	rep, err := h.reporter.Generate(ctx, fromDTO(positions), onProgress)
	if err != nil {
		return nil, err
	}
	if err := h.reports.Save(r.Context(), rep); err != nil {
		obslog.L().Error("save report failed", zap.String("id", rep.ID), zap.Error(err))
	}
	return rep, nil
}

// reportBodyLimit allows a positions array several times the size of the
// PGN it came from.
func (h *handler) reportBodyLimit() int64 {
	return h.maxBody * 16
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func toDTO(positions trajectory.Trajectory) []reportdto.Position {
	out := make([]reportdto.Position, len(positions))
	for i, p := range positions {
		out[i] = reportdto.Position{FEN: p.FEN}
		if p.Move != nil {
			out[i].Move = &reportdto.MoveDescriptor{SAN: p.Move.SAN, UCI: p.Move.UCI}
		}
	}
	return out
}

func fromDTO(positions []reportdto.Position) []trajectory.Position {
	out := make([]trajectory.Position, len(positions))
	for i, p := range positions {
		out[i] = trajectory.Position{FEN: p.FEN}
		if p.Move != nil {
			out[i].Move = &trajectory.MoveDescriptor{SAN: p.Move.SAN, UCI: p.Move.UCI}
		}
	}
	return out
}
