package jobs

import (
	"context"
	"log"
	"time"

	"github.com/samrato/QMMMUST/internal/config"
)

type alertRetrier interface {
	RetryPending(ctx context.Context, batch int) (delivered, failed int, err error)
}

// StartAlertRetryJob periodically re-sends undelivered alerts. It is off when the interval is zero.
func StartAlertRetryJob(ctx context.Context, cfg *config.Config, alerts alertRetrier) {
	if cfg.AlertRetryInterval <= 0 {
		return
	}
	if alerts == nil {
		log.Printf("alert retry job disabled: alert emitter not configured")
		return
	}
	batch := cfg.AlertRetryBatch
	if batch <= 0 {
		batch = 50
	}
	timeout := cfg.AlertRetryInterval
	if timeout > time.Minute {
		timeout = time.Minute
	}

	ticker := time.NewTicker(cfg.AlertRetryInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				delivered, failed, err := alerts.RetryPending(tickCtx, batch)
				cancel()
				if err != nil {
					log.Printf("alert retry job error: %v", err)
					continue
				}
				if delivered > 0 || failed > 0 {
					log.Printf("alert retry job delivered %d, failed %d", delivered, failed)
				}
			}
		}
	}()
}
