package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("Default should return the same collector")
	}
}

func TestCollectorExposesMetrics(t *testing.T) {
	c := Default()
	c.RecordHTTPRequest("POST", "/parse", "200", 15*time.Millisecond)
	c.RecordReport("success", 41, 3*time.Second)
	c.RecordReport("error", 3, time.Second)
	c.RecordEvaluation("engine", "success", 200*time.Millisecond)
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.StreamOpened()
	c.StreamClosed()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, name := range []string{
		`pgn_report_http_requests_total{method="POST",route="/parse",status="200"}`,
		`pgn_report_reports_total{status="success"}`,
		`pgn_report_evaluations_total{backend="engine",status="success"}`,
		"pgn_report_cache_hits_total",
		"pgn_report_cache_misses_total",
		"pgn_report_active_streams",
	} {
		if !strings.Contains(text, name) {
			t.Fatalf("metrics output missing %s", name)
		}
	}
}
