package revocation

import (
	"context"
	"log/slog"
	"time"
)

// RunJanitor calls Prune every interval until ctx is cancelled.
func RunJanitor(ctx context.Context, s Store, every time.Duration, log *slog.Logger) {
	if every <= 0 {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Prune(ctx)
			if err != nil {
				log.Warn("revocation prune failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("revocation records pruned", "count", n)
			}
		}
	}
}
