package jobs

import (
	"context"
	"fmt"
	"time"

	"stampcard/internal/repositories/interfaces"
	"stampcard/pkg/logger"
	"stampcard/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// Reaper flips QR tokens past their expiry to expired and purges finished
// tokens once they are older than the retention window.
type Reaper struct {
	cron      *cron.Cron
	schedule  string
	retention time.Duration
	tokenRepo interfaces.QRTokenRepository
	metrics   *metrics.LoyaltyMetrics
	logger    *logger.Logger
	now       func() time.Time
}

func NewReaper(tokenRepo interfaces.QRTokenRepository, schedule string, retention time.Duration, log *logger.Logger) *Reaper {
	return &Reaper{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule:  schedule,
		retention: retention,
		tokenRepo: tokenRepo,
		metrics:   metrics.Loyalty(),
		logger:    log.WithField("job", "qr_token_reaper"),
		now:       time.Now,
	}
}

func (r *Reaper) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Infof("QR token reaper scheduled (%s)", r.schedule)
	return nil
}

func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("QR token reaper stopped")
}

// RunOnce performs a single sweep.
func (r *Reaper) RunOnce(ctx context.Context) {
	now := r.now()

	expired, err := r.tokenRepo.ExpireStale(ctx, now)
	if err != nil {
		r.logger.WithError(err).Error("Failed to expire stale QR tokens")
	} else {
		r.metrics.ObserveReaped("expired", expired)
	}

	deleted, err := r.tokenRepo.DeleteTerminalBefore(ctx, now.Add(-r.retention))
	if err != nil {
		r.logger.WithError(err).Error("Failed to purge finished QR tokens")
	} else {
		r.metrics.ObserveReaped("deleted", deleted)
	}

	if expired > 0 || deleted > 0 {
		r.logger.WithFields(logger.Fields{
			"expired": expired,
			"deleted": deleted,
		}).Info("QR token sweep complete")
	}
}
