package store

import (
	"context"

	"github.com/loopline/concierge/internal/store/model"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Attempts() AttemptRepository

	Close() error
}

type AttemptRepository interface {
	// Log records one finished upstream attempt.
	Log(ctx context.Context, attempt *model.AttemptLog) error
	// GetByRequestID returns the full attempt trail for one request.
	GetByRequestID(ctx context.Context, requestID string) ([]model.AttemptLog, error)
	// GetDailyStats returns aggregated attempt counts grouped by day.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}
