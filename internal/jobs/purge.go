package jobs

import (
    "context"
    "log/slog"
    "time"

    "github.com/iliyamo/cineclic/internal/logger"
)

// UnverifiedUsers deletes customer accounts that were never confirmed.
type UnverifiedUsers interface {
    DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewPurgeTicker returns a ticker that every interval removes accounts left
// unconfirmed for longer than ttl, freeing their addresses for a new
// registration.
func NewPurgeTicker(u UnverifiedUsers, ttl, interval time.Duration, l *slog.Logger) *Ticker {
    log := logger.Component(l, "purge")
    return newTicker("unverified purge", interval, log, func(ctx context.Context) error {
        n, err := u.DeleteUnverifiedBefore(ctx, time.Now().UTC().Add(-ttl))
        if err != nil {
            return err
        }
        if n > 0 {
            log.Info("unconfirmed accounts removed", "count", n)
        }
        return nil
    })
}
