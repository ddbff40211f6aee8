// Package sweeper periodically evicts expired sessions.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes everything that expired before now and reports how many.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Run sweeps every interval until ctx is done. It blocks; start it in a goroutine.
func Run(ctx context.Context, s Sweeper, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Sweep(now); n > 0 {
				log.Info("expired sessions swept", zap.Int("count", n))
			}
		}
	}
}
