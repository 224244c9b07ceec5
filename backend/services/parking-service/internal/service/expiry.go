package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/clock"
)

const defaultExpiryBatch = 100

// BookingExpiryJob periodically releases bookings that were never entered.
type BookingExpiryJob struct {
	sessions    *SessionsService
	clock       clock.Clock
	interval    time.Duration
	gracePeriod time.Duration
	batch       int
	logger      *zap.Logger

	running sync.Mutex
}

// NewBookingExpiryJob builds the job. A booking expires gracePeriod after its requested end.
func NewBookingExpiryJob(sessions *SessionsService, clk clock.Clock, interval, gracePeriod time.Duration, logger *zap.Logger) *BookingExpiryJob {
	if interval <= 0 {
		interval = time.Minute
	}
	if gracePeriod < 0 {
		gracePeriod = 0
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingExpiryJob{
		sessions:    sessions,
		clock:       clk,
		interval:    interval,
		gracePeriod: gracePeriod,
		batch:       defaultExpiryBatch,
		logger:      logger,
	}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (j *BookingExpiryJob) Run(ctx context.Context) {
	j.logger.Info("starting booking expiry job",
		zap.Duration("interval", j.interval),
		zap.Duration("grace_period", j.gracePeriod),
	)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("booking expiry job stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep expires overdue bookings in batches and returns how many were released.
// Overlapping sweeps are skipped.
func (j *BookingExpiryJob) Sweep(ctx context.Context) int {
	if !j.running.TryLock() {
		return 0
	}
	defer j.running.Unlock()

	cutoff := j.clock.Now().Add(-j.gracePeriod)
	total := 0
	for ctx.Err() == nil {
		released, err := j.sessions.ExpireBookings(ctx, cutoff, j.batch)
		if err != nil {
			j.logger.Error("failed to expire bookings", zap.Error(err))
			break
		}
		total += released
		if released < j.batch {
			break
		}
	}
	if total > 0 {
		j.logger.Info("expired bookings released", zap.Int("count", total))
	}
	return total
}
