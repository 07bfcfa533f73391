package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/loopline/concierge/internal/router"
	"github.com/loopline/concierge/internal/store"
	"github.com/loopline/concierge/internal/store/model"
	"go.uber.org/zap"
)

// Ingestor handles the asynchronous persistence of attempt records. It
// implements router.Recorder so the orchestrator never blocks on disk.
type Ingestor interface {
	Record(rec router.AttemptRecord)
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	logChan   chan *model.AttemptLog
	done      chan struct{}
	batchSize int
	flushTime time.Duration
}

func NewIngestor(logger *zap.Logger, repo store.Repository) Ingestor {
	return &ingestor{
		logger:    logger,
		repo:      repo,
		logChan:   make(chan *model.AttemptLog, 10000),
		done:      make(chan struct{}),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

func (i *ingestor) Record(rec router.AttemptRecord) {
	attempt := &model.AttemptLog{
		ID:             uuid.NewString(),
		RequestID:      rec.RequestID,
		Provider:       rec.Provider,
		Model:          rec.Model,
		OmitSystemRole: rec.OmitSystemRole,
		Outcome:        rec.Outcome,
		LatencyMS:      rec.Latency.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}

	select {
	case i.logChan <- attempt:
	default:
		i.logger.Warn("Analytics buffer full, dropping attempt log", zap.String("request_id", rec.RequestID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	go i.worker(ctx)
}

// Stop closes the intake and blocks until the worker has flushed whatever is
// still buffered. Callers must cancel the Start context only after Stop
// returns, or buffered records may be lost.
func (i *ingestor) Stop() {
	close(i.logChan)
	<-i.done
}

func (i *ingestor) worker(ctx context.Context) {
	defer close(i.done)

	batch := make([]*model.AttemptLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		for _, attempt := range batch {
			if err := i.repo.Attempts().Log(context.Background(), attempt); err != nil {
				i.logger.Error("Failed to persist attempt log", zap.String("id", attempt.ID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case attempt, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, attempt)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
