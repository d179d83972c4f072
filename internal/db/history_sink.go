package db

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/internal/display"
)

// snapshotRecorder is implemented by SightingRepository.
type snapshotRecorder interface {
	RecordSnapshot(ctx context.Context, snap display.Snapshot) error
}

// historyCleaner is implemented by DB.
type historyCleaner interface {
	CleanupOldData(ctx context.Context, maxAge time.Duration) error
}

// cleanupInterval is how often old history is pruned.
const cleanupInterval = time.Hour

// HistorySink records every snapshot in the database.
type HistorySink struct {
	repo       snapshotRecorder
	cleaner    historyCleaner
	db         *DB
	maxRetries int
	retention  time.Duration // 0 keeps everything
	logger     zerolog.Logger

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewHistorySink creates a sink that writes through a SightingRepository on db
// and, when retention is positive, prunes history older than retention about
// once an hour. The sink owns db and closes it on Close.
func NewHistorySink(db *DB, retention time.Duration, logger zerolog.Logger) *HistorySink {
	return &HistorySink{
		repo:       NewSightingRepository(db),
		cleaner:    db,
		db:         db,
		maxRetries: 2,
		retention:  retention,
		logger:     logger.With().Str("sink", "history").Logger(),
	}
}

// Deliver stores snap, retrying when the connection was lost.
func (h *HistorySink) Deliver(ctx context.Context, snap display.Snapshot) error {
	err := WithRetry(ctx, func() error {
		return h.repo.RecordSnapshot(ctx, snap)
	}, h.maxRetries, h.logger)
	if err != nil {
		return err
	}

	h.logger.Debug().Str("cycle", snap.CycleID).Int("count", snap.Count).Msg("Recorded snapshot")

	h.maybeCleanup(ctx, snap.Taken)
	return nil
}

// maybeCleanup prunes old history when the last pass is older than
// cleanupInterval. Failures are logged only.
func (h *HistorySink) maybeCleanup(ctx context.Context, now time.Time) {
	if h.retention <= 0 || h.cleaner == nil {
		return
	}

	h.mu.Lock()
	due := now.Sub(h.lastCleanup) >= cleanupInterval
	if due {
		h.lastCleanup = now
	}
	h.mu.Unlock()
	if !due {
		return
	}

	if err := h.cleaner.CleanupOldData(ctx, h.retention); err != nil {
		h.logger.Error().Err(err).Msg("Failed to prune history")
		return
	}
	h.logger.Debug().Dur("retention", h.retention).Msg("Pruned history")
}

// Close closes the database connection.
func (h *HistorySink) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}
