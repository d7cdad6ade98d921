// Package reportbuilder turns configuration into the service's runtime
// dependencies.
package reportbuilder

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/pgn-report/internal/analysis"
	"github.com/park285/pgn-report/internal/chess/uci"
	"github.com/park285/pgn-report/internal/config"
	"github.com/park285/pgn-report/internal/msgcat"
	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/internal/report"
	"github.com/park285/pgn-report/internal/reportclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Reporter  *analysis.Reporter
	Evaluator analysis.Evaluator
	Reports   report.Repository
	Messages  *msgcat.Catalog

	Pool  *uci.Pool
	Redis *redis.Client
	DB    *sql.DB
}

// New builds every dependency from cfg. Anything opened before a failure is
// closed again.
func New(ctx context.Context, cfg *config.AppConfig) (deps *Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	deps = &Deps{}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	deps.Messages, err = msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	concurrency := cfg.AnalysisConcurrency
	var eval analysis.Evaluator
	switch {
	case strings.TrimSpace(cfg.StockfishPath) != "":
		deps.Pool, err = uci.NewPool(uci.PoolConfig{
			BinaryPath: cfg.StockfishPath,
			Options:    engineOptions(cfg),
			Capacity:   concurrency,
		})
		if err != nil {
			return nil, fmt.Errorf("init engine pool: %w", err)
		}
		concurrency = deps.Pool.Capacity()
		eval = analysis.NewEngineEvaluator(deps.Pool, engineLimits(cfg))
		obslog.L().Info("analysis backend: engine",
			zap.String("path", cfg.StockfishPath),
			zap.Int("capacity", concurrency),
		)
	case strings.TrimSpace(cfg.AnalysisURL) != "":
		client := reportclient.NewClient(cfg.AnalysisURL, reportclient.WithTimeout(cfg.AnalysisTimeout))
		eval = analysis.NewRemoteEvaluator(client)
		if concurrency <= 0 {
			concurrency = uci.DefaultCapacity()
		}
		obslog.L().Info("analysis backend: remote", zap.String("url", cfg.AnalysisURL))
	default:
		return nil, errors.New("STOCKFISH_PATH or ANALYSIS_URL is required")
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, perr := parseRedisURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("parse redis url: %w", perr)
		}
		deps.Redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = deps.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		eval = analysis.NewCachedEvaluator(eval, deps.Redis, cfg.AnalysisCacheTTL, cacheNamespace(cfg))
	}
	deps.Evaluator = eval

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		deps.DB, err = report.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.Reports = report.NewRepository(deps.DB)
	} else {
		obslog.L().Warn("DATABASE_URL not set, reports are kept in memory")
		deps.Reports = report.NewMemoryRepository()
	}

	deps.Reporter = analysis.NewReporter(eval,
		analysis.WithConcurrency(concurrency),
		analysis.WithThresholds(analysis.Thresholds{
			Inaccuracy: cfg.ThresholdInaccuracy,
			Mistake:    cfg.ThresholdMistake,
			Blunder:    cfg.ThresholdBlunder,
		}),
	)
	return deps, nil
}

// Close releases the engine pool and connections. Safe on a partial Deps.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Pool != nil {
		errs = append(errs, d.Pool.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}

func engineOptions(cfg *config.AppConfig) uci.Options {
	return uci.Options{
		Threads: cfg.AnalysisThreads,
		HashMB:  cfg.AnalysisHashMB,
		MultiPV: cfg.AnalysisMultiPV,
	}
}

func engineLimits(cfg *config.AppConfig) uci.Limits {
	return uci.Limits{
		Depth:          cfg.AnalysisDepth,
		MoveTimeMillis: cfg.AnalysisMoveTimeMS,
	}
}

// cacheNamespace changes whenever a setting that affects scores changes.
func cacheNamespace(cfg *config.AppConfig) string {
	backend := "engine"
	if strings.TrimSpace(cfg.StockfishPath) == "" {
		backend = "remote:" + cfg.AnalysisURL
	}
	return fmt.Sprintf("%s|depth=%d|movetime=%d|multipv=%d",
		backend, cfg.AnalysisDepth, cfg.AnalysisMoveTimeMS, cfg.AnalysisMultiPV)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("missing host")
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{
		Addr:     net.JoinHostPort(u.Hostname(), port),
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opts, nil
}
