package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/pkg/reportdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamRequestTimeout = 30 * time.Second
	streamWriteTimeout   = 10 * time.Second
)

// streamReport accepts a websocket, reads one ReportRequest frame and
// answers with progress frames followed by a report or error frame.
func (h *handler) streamReport(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected exit")

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	conn.SetReadLimit(h.reportBodyLimit())
	ctx := r.Context()

	var req reportdto.ReportRequest
	readCtx, cancel := context.WithTimeout(ctx, streamRequestTimeout)
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		obslog.L().Debug("read stream request failed", zap.Error(err))
		h.sendFrame(ctx, conn, reportdto.StreamFrame{
			Type:    reportdto.FrameError,
			Message: h.msgs.Text("request.invalid_json", nil),
		})
		_ = conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	rep, err := h.generate(r, req.Positions, func(done, total int) {
		h.sendFrame(ctx, conn, reportdto.StreamFrame{Type: reportdto.FrameProgress, Done: done, Total: total})
	})
	if err != nil {
		h.sendFrame(ctx, conn, reportdto.StreamFrame{Type: reportdto.FrameError, Message: h.streamErrorMessage(err)})
		_ = conn.Close(websocket.StatusNormalClosure, "failed")
		return
	}

	h.sendFrame(ctx, conn, reportdto.StreamFrame{Type: reportdto.FrameReport, Report: rep})
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func (h *handler) sendFrame(ctx context.Context, conn *websocket.Conn, frame reportdto.StreamFrame) {
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, frame); err != nil {
		obslog.L().Debug("write stream frame failed", zap.String("type", frame.Type), zap.Error(err))
	}
}

func (h *handler) streamErrorMessage(err error) string {
	if statusFor(err) < http.StatusInternalServerError {
		return h.msgs.Text(messageKeyFor(err), nil)
	}
	return h.msgs.Text(failureKey(err, "report.failed"), nil)
}
