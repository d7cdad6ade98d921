package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Port string

	StockfishPath string
	AnalysisURL   string

	AnalysisDepth       int
	AnalysisMoveTimeMS  int
	AnalysisMultiPV     int
	AnalysisThreads     int
	AnalysisHashMB      int
	AnalysisConcurrency int
	AnalysisTimeout     time.Duration

	RedisURL         string
	AnalysisCacheTTL time.Duration

	DatabaseURL string

	MaxPGNBytes int64
	MessagesDir string

	ThresholdInaccuracy int
	ThresholdMistake    int
	ThresholdBlunder    int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                "3000",
		AnalysisDepth:       14,
		AnalysisMultiPV:     1,
		AnalysisThreads:     1,
		AnalysisHashMB:      64,
		AnalysisTimeout:     120 * time.Second,
		AnalysisCacheTTL:    24 * time.Hour,
		MaxPGNBytes:         256 << 10,
		ThresholdInaccuracy: 50,
		ThresholdMistake:    100,
		ThresholdBlunder:    200,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Port = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	cfg.AnalysisURL = strings.TrimRight(strings.TrimSpace(os.Getenv("ANALYSIS_URL")), "/")

	setPositiveInt(&cfg.AnalysisDepth, "ANALYSIS_DEPTH")
	setPositiveInt(&cfg.AnalysisMoveTimeMS, "ANALYSIS_MOVETIME_MS")
	setPositiveInt(&cfg.AnalysisMultiPV, "ANALYSIS_MULTIPV")
	setPositiveInt(&cfg.AnalysisThreads, "ANALYSIS_THREADS")
	setPositiveInt(&cfg.AnalysisHashMB, "ANALYSIS_HASH_MB")
	setPositiveInt(&cfg.AnalysisConcurrency, "ANALYSIS_CONCURRENCY")
	setSeconds(&cfg.AnalysisTimeout, "ANALYSIS_TIMEOUT")

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	setSeconds(&cfg.AnalysisCacheTTL, "ANALYSIS_CACHE_TTL")

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("MAX_PGN_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxPGNBytes = n
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	setPositiveInt(&cfg.ThresholdInaccuracy, "THRESHOLD_INACCURACY")
	setPositiveInt(&cfg.ThresholdMistake, "THRESHOLD_MISTAKE")
	setPositiveInt(&cfg.ThresholdBlunder, "THRESHOLD_BLUNDER")

	if cfg.StockfishPath == "" && cfg.AnalysisURL == "" {
		return nil, errors.New("STOCKFISH_PATH or ANALYSIS_URL is required")
	}
	if cfg.ThresholdInaccuracy >= cfg.ThresholdMistake || cfg.ThresholdMistake >= cfg.ThresholdBlunder {
		return nil, errors.New("thresholds must satisfy inaccuracy < mistake < blunder")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *AppConfig) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func setPositiveInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

// seconds, or a Go duration like 90s
func setSeconds(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Second
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
	}
}
