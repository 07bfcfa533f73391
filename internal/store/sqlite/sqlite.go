package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/loopline/concierge/internal/store"
	"github.com/loopline/concierge/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository implements store.Repository over sqlite.
type Repository struct {
	db       *sqlx.DB
	executor DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db:       db,
		executor: db,
	}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Attempts() store.AttemptRepository {
	return &attemptRepo{db: r.executor}
}

type attemptRepo struct {
	db DB
}

func (r *attemptRepo) Log(ctx context.Context, attempt *model.AttemptLog) error {
	query := `
	INSERT INTO attempt_logs (
		id, request_id, provider, model, omit_system_role, outcome, latency_ms, created_at
	) VALUES (
		:id, :request_id, :provider, :model, :omit_system_role, :outcome, :latency_ms, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, attempt)
	return err
}

func (r *attemptRepo) GetByRequestID(ctx context.Context, requestID string) ([]model.AttemptLog, error) {
	var attempts []model.AttemptLog
	query := `SELECT * FROM attempt_logs WHERE request_id = ? ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &attempts, query, requestID)
	return attempts, err
}

func (r *attemptRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	var stats []model.DailyStats
	query := `
		SELECT
			DATE(created_at) as date,
			COUNT(*) as total_attempts,
			SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END) as successes,
			AVG(latency_ms) as avg_latency
		FROM attempt_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// SQLite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
