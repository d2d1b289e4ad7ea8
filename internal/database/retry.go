package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// withRetry runs ping until it succeeds, doubling the wait between attempts.
// Containers often start before the database accepts connections.
func withRetry(ctx context.Context, log zerolog.Logger, target string, ping func(context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		log.Warn().Err(err).Str("target", target).Int("attempt", attempt).Dur("retry_in", wait).Msg("Connection not ready")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
