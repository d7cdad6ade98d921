package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/pkg/reportdto"
	"go.uber.org/zap"
)

var errBodyTooLarge = errors.New("request body too large")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		obslog.L().Warn("write response failed", zap.Int("status", status), zap.Error(err))
	}
}

// writeError renders err with the status from statusFor. 5xx responses use
// fallbackKey and never expose err itself.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallbackKey string, data any) {
	status := statusFor(err)
	key := fallbackKey
	if status < http.StatusInternalServerError {
		if k := messageKeyFor(err); k != "" {
			key = k
		}
	} else {
		obslog.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, reportdto.ErrorResponse{Message: h.msgs.Text(key, data)})
}

// decodeJSON reads at most limit bytes of r's body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit %d", errBodyTooLarge, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return nil
}
