package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/memoraio/memora/internal/metrics"
)

// Sweeper removes expired short-term turns in batches.
type Sweeper struct {
	store     TurnStore
	batchSize int
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewSweeper creates a retention sweeper. batchSize bounds how many
// turns a single delete touches.
func NewSweeper(store TurnStore, batchSize int, logger *slog.Logger, collector *metrics.Collector) *Sweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		batchSize: batchSize,
		logger:    logger,
		collector: collector,
	}
}

// Sweep deletes all turns expired as of the moment the sweep started.
// Turns expiring mid-sweep wait for the next pass, so a long sweep
// cannot chase its own tail. Returns the number of turns removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	now := start.UTC()
	total := 0

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		ids, err := s.store.ExpiredTurnIDs(ctx, now, s.batchSize)
		if err != nil {
			return total, fmt.Errorf("find expired turns: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		removed, err := s.store.DeleteTurns(ctx, ids)
		if err != nil {
			return total, fmt.Errorf("delete expired turns: %w", err)
		}
		total += removed

		// A short batch means the backlog is drained.
		if len(ids) < s.batchSize {
			break
		}
	}

	if s.collector != nil {
		s.collector.RecordTiming(metrics.OpSweep, time.Since(start))
	}
	if total > 0 {
		s.logger.Info("expired turns swept", "removed", total, "duration_ms", time.Since(start).Milliseconds())
	}
	return total, nil
}

// Run sweeps on the given interval until ctx is cancelled. Errors are
// logged and the loop continues.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}
