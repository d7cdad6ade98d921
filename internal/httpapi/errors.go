package httpapi

import (
	"errors"
	"net/http"

	"github.com/park285/pgn-report/internal/analysis"
	"github.com/park285/pgn-report/internal/pgn"
	"github.com/park285/pgn-report/internal/render"
	"github.com/park285/pgn-report/internal/report"
	"github.com/park285/pgn-report/internal/trajectory"
)

var (
	errInvalidJSON  = errors.New("invalid json body")
	errInvalidQuery = errors.New("invalid query parameter")
)

// statusFor maps an error kind to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidJSON),
		errors.Is(err, errInvalidQuery),
		errors.Is(err, trajectory.ErrEmptyInput),
		errors.Is(err, pgn.ErrInvalid),
		errors.Is(err, trajectory.ErrIllegalMove),
		errors.Is(err, analysis.ErrMissingPositions),
		errors.Is(err, analysis.ErrInvalidPosition),
		errors.Is(err, analysis.ErrInvalidFEN),
		errors.Is(err, render.ErrInvalidFEN),
		errors.Is(err, render.ErrInvalidMove):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrReportNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageKeyFor picks the catalog key for a client error.
func messageKeyFor(err error) string {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return "parse.too_large"
	case errors.Is(err, errInvalidJSON):
		return "request.invalid_json"
	case errors.Is(err, trajectory.ErrEmptyInput):
		return "parse.required"
	case errors.Is(err, trajectory.ErrIllegalMove):
		return "parse.illegal"
	case errors.Is(err, pgn.ErrInvalid):
		return "parse.invalid"
	case errors.Is(err, analysis.ErrMissingPositions):
		return "report.positions_required"
	case errors.Is(err, analysis.ErrInvalidPosition):
		return "report.invalid_position"
	case errors.Is(err, analysis.ErrInvalidFEN):
		return "evaluate.invalid_fen"
	case errors.Is(err, errInvalidQuery), errors.Is(err, render.ErrInvalidFEN), errors.Is(err, render.ErrInvalidMove):
		return "board.invalid"
	case errors.Is(err, report.ErrReportNotFound):
		return "report.not_found"
	default:
		return ""
	}
}

// failureKey names the 5xx message for an analysis failure.
func failureKey(err error, fallback string) string {
	switch {
	case errors.Is(err, analysis.ErrEngineTimeout):
		return "report.timeout"
	case errors.Is(err, analysis.ErrEngineUnavailable):
		return "report.engine_unavailable"
	default:
		return fallback
	}
}
