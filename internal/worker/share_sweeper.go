package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired share links are purged.
const DefaultSweepInterval = time.Hour

// ShareStore deletes expired share rows, reporting how many were removed.
type ShareStore interface {
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// ShareSweeper periodically purges expired cloud share links. Expired shares
// already 410 on access; the sweep keeps the table from growing unbounded.
type ShareSweeper struct {
	shares   ShareStore
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewShareSweeper creates a sweeper running every interval.
func NewShareSweeper(shares ShareStore, interval time.Duration, logger *zap.Logger) *ShareSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareSweeper{shares: shares, interval: interval, logger: logger, now: time.Now}
}

// Sweep runs one purge pass.
func (s *ShareSweeper) Sweep(ctx context.Context) error {
	n, err := s.shares.DeleteExpired(ctx, s.now().Unix())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired shares purged", zap.Int64("count", n))
	}
	return nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ShareSweeper) Run(ctx context.Context) {
	if err := s.Sweep(ctx); err != nil {
		s.logger.Warn("share sweep failed", zap.Error(err))
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("share sweeper stopping")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Warn("share sweep failed", zap.Error(err))
			}
		}
	}
}
