package persistence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredPurger deletes expired records
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Janitor periodically purges expired cart records
type Janitor struct {
	purger   ExpiredPurger
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a janitor; a non-positive interval defaults to one hour
func NewJanitor(purger ExpiredPurger, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		purger:   purger,
		interval: interval,
		logger:   logger,
	}
}

// Start runs one purge immediately and then on every interval until Stop
func (j *Janitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go j.loop(ctx)

	j.logger.Info("cart record janitor started", zap.Duration("interval", j.interval))
}

// Stop cancels the loop and waits for it or ctx, whichever comes first
func (j *Janitor) Stop(ctx context.Context) error {
	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("cart record janitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.purge(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *Janitor) purge(ctx context.Context) {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warn("failed to purge expired cart records", zap.Error(err))
		}
		return
	}
	if n > 0 {
		j.logger.Info("purged expired cart records", zap.Int64("count", n))
	}
}
