package keyrefresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/internal/auth"
)

// Refresher periodically re-fetches the identity provider's key set so
// requests rarely wait on the network after the cache expires.
type Refresher struct {
	source   auth.Refresher
	interval time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
}

// New schedules source.Refresh every interval. Intervals under a second
// are rounded up.
func New(source auth.Refresher, interval time.Duration, logger *zap.Logger) (*Refresher, error) {
	if interval < time.Second {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Refresher{
		source:   source,
		interval: interval,
		logger:   logger,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(interval.Seconds()))
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("keyrefresh: scheduling %q: %w", schedule, err)
	}
	return r, nil
}

// Start launches the cron scheduler.
func (r *Refresher) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("key set refresher started", zap.Duration("interval", r.interval))
}

// Stop waits for a running refresh to finish or ctx to end.
func (r *Refresher) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("key set refresher stopped")
}

// RefreshNow runs one refresh synchronously.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	set, err := r.source.Refresh(ctx)
	if err != nil {
		return err
	}
	r.logger.Debug("key set refreshed", zap.Int("keys", set.Len()))
	return nil
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()
	if err := r.RefreshNow(ctx); err != nil {
		r.logger.Warn("key set refresh failed", zap.Error(err))
	}
}
