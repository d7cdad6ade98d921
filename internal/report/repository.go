// Package report persists generated reports.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/park285/pgn-report/pkg/reportdto"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrDuplicateReport = errors.New("report already exists")
)

type Repository interface {
	Save(ctx context.Context, r *reportdto.Report) error
	Get(ctx context.Context, id string) (*reportdto.Report, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS game_reports (
	id             UUID PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL,
	opening_eco    TEXT NOT NULL DEFAULT '',
	opening_name   TEXT NOT NULL DEFAULT '',
	positions      INTEGER NOT NULL,
	white_accuracy DOUBLE PRECISION NOT NULL,
	black_accuracy DOUBLE PRECISION NOT NULL,
	payload        JSONB NOT NULL
)`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// OpenPostgres connects, pings and ensures the reports table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func (r *repository) Save(ctx context.Context, rep *reportdto.Report) error {
	if rep == nil {
		return fmt.Errorf("nil report payload")
	}
	if _, err := uuid.Parse(rep.ID); err != nil {
		return fmt.Errorf("report id %q: %w", rep.ID, err)
	}
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var eco, name string
	if rep.Opening != nil {
		eco, name = rep.Opening.ECO, rep.Opening.Name
	}

	const query = `
		INSERT INTO game_reports (
			id,
			created_at,
			opening_eco,
			opening_name,
			positions,
			white_accuracy,
			black_accuracy,
			payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(
		ctx,
		query,
		rep.ID,
		rep.CreatedAt,
		eco,
		name,
		len(rep.Positions),
		rep.Summary.White.Accuracy,
		rep.Summary.Black.Accuracy,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicateReport
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*reportdto.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReportNotFound
	}

	const query = `SELECT payload FROM game_reports WHERE id = $1`
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}

	var rep reportdto.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
