package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/park285/pgn-report/internal/metrics"
	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/pkg/reportdto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix  = "analysis:eval:"
	defaultCacheTTL = 24 * time.Hour
)

// CachedEvaluator stores evaluations in Redis keyed by position and engine
// settings. Redis failures degrade to the inner evaluator.
type CachedEvaluator struct {
	inner     Evaluator
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachedEvaluator wraps inner. namespace should change whenever the
// engine settings do, so stale scores are never served.
func NewCachedEvaluator(inner Evaluator, rdb *redis.Client, ttl time.Duration, namespace string) *CachedEvaluator {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedEvaluator{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (c *CachedEvaluator) key(fen string) string {
	sum := sha256.Sum256([]byte(c.namespace + "|" + positionKey(fen)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// positionKey drops the move counters, which do not change the evaluation.
func positionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func (c *CachedEvaluator) Evaluate(ctx context.Context, fen string) (reportdto.Evaluation, error) {
	key := c.key(fen)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ev reportdto.Evaluation
		if jerr := json.Unmarshal(raw, &ev); jerr == nil {
			metrics.Default().RecordCacheHit()
			return ev, nil
		}
		obslog.L().Warn("evaluation cache entry corrupt", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		obslog.L().Warn("evaluation cache read failed", zap.Error(err))
	}
	metrics.Default().RecordCacheMiss()

	ev, err := c.inner.Evaluate(ctx, fen)
	if err != nil {
		return reportdto.Evaluation{}, err
	}

	if b, err := json.Marshal(ev); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			obslog.L().Warn("evaluation cache write failed", zap.Error(err))
		}
	}
	return ev, nil
}
