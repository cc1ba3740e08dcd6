package devserver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/binSaed/flutter-redirectly/internal/store"
)

// RunSweeper deletes expired temp links every interval until ctx is done.
// Expired links already answer 410; sweeping only reclaims their slugs.
func RunSweeper(ctx context.Context, links *store.LinkStore, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n, err := links.DeleteExpired(ctx, t)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("sweep expired links")
				}
				continue
			}
			if n > 0 {
				log.Info().Int64("removed", n).Msg("swept expired links")
			}
		}
	}
}
