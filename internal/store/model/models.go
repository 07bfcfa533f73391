package model

import "time"

// AttemptLog captures one upstream call made while serving a request: which
// provider and model were tried, whether the system role was stripped, and
// how the attempt ended.
type AttemptLog struct {
	ID             string    `db:"id" json:"id"`
	RequestID      string    `db:"request_id" json:"request_id"`
	Provider       string    `db:"provider" json:"provider"`
	Model          string    `db:"model" json:"model"`
	OmitSystemRole bool      `db:"omit_system_role" json:"omit_system_role"`
	Outcome        string    `db:"outcome" json:"outcome"` // 'success', 'skipped', or a failure kind
	LatencyMS      int64     `db:"latency_ms" json:"latency_ms"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// DailyStats represents aggregated attempt data for a specific day.
type DailyStats struct {
	Date           string  `db:"date" json:"date"`
	TotalAttempts  int     `db:"total_attempts" json:"total_attempts"`
	Successes      int     `db:"successes" json:"successes"`
	AverageLatency float64 `db:"avg_latency" json:"avg_latency"`
}
