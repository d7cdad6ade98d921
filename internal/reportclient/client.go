// Package reportclient talks to a running report server over HTTP and
// websocket.
package reportclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/pgn-report/pkg/reportdto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider injects per-request headers.
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 2 * time.Minute, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Parse(ctx context.Context, pgn string) (*reportdto.ParseResponse, error) {
	var resp reportdto.ParseResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/parse", reportdto.ParseRequest{PGN: pgn}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Report asks the server to analyse positions. It is not retried since a
// report may take the whole server deadline.
func (c *Client) Report(ctx context.Context, positions []reportdto.Position) (*reportdto.Report, error) {
	var resp reportdto.ReportResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/report", reportdto.ReportRequest{Positions: positions}, &resp, false); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, errors.New("report response without results")
	}
	return resp.Results, nil
}

func (c *Client) GetReport(ctx context.Context, id string) (*reportdto.Report, error) {
	var resp reportdto.ReportResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/report/"+url.PathEscape(id), nil, &resp, true); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, errors.New("report response without results")
	}
	return resp.Results, nil
}

// Evaluate scores one position on the remote engine.
func (c *Client) Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error) {
	var ev reportdto.Evaluation
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/evaluate", reportdto.EvaluateRequest{FEN: fen}, &ev, true); err != nil {
		return reportdto.Evaluation{}, err
	}
	return ev, nil
}

func (c *Client) Health(ctx context.Context) error {
	var resp reportdto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, &resp, false); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unhealthy: %q", resp.Status)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if errors.Is(err, fasthttp.ErrTimeout) && ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ctx.Err(), err)
			}
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			lastErr = apiErr
			if attempt == attempts || !apiErr.Retryable {
				return apiErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) *reportdto.APIError {
	apiErr := &reportdto.APIError{Status: status, Retryable: shouldRetryStatus(status)}
	var er reportdto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		apiErr.Message = er.Message
	} else {
		apiErr.Message = truncate(string(body), 512)
	}
	return apiErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
