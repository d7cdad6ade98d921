package reportclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/park285/pgn-report/pkg/reportdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// streamURL turns the http base URL into the websocket report endpoint.
func (c *Client) streamURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/report/stream"
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headers == nil {
		return hdr
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}

// StreamReport submits positions over the report websocket and calls
// onProgress for every progress frame until the report arrives.
func (c *Client) StreamReport(ctx context.Context, positions []reportdto.Position, onProgress func(done, total int)) (*reportdto.Report, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, c.streamURL(), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		return nil, fmt.Errorf("dial report stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(16 << 20)

	if err := wsjson.Write(ctx, conn, reportdto.ReportRequest{Positions: positions}); err != nil {
		return nil, fmt.Errorf("send positions: %w", err)
	}

	for {
		var frame reportdto.StreamFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		switch frame.Type {
		case reportdto.FrameProgress:
			if onProgress != nil {
				onProgress(frame.Done, frame.Total)
			}
		case reportdto.FrameReport:
			if frame.Report == nil {
				return nil, errors.New("report frame without report")
			}
			return frame.Report, nil
		case reportdto.FrameError:
			return nil, &reportdto.APIError{Message: frame.Message}
		default:
			return nil, fmt.Errorf("unexpected frame type %q", frame.Type)
		}
	}
}
