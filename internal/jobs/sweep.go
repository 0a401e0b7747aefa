// Package jobs drives the periodic background work: the deadline sweep,
// either from an in-process ticker or from an asynq periodic task, and the
// purge of unconfirmed accounts.
package jobs

import (
    "context"
    "fmt"
    "log/slog"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
    "github.com/iliyamo/cineclic/internal/reservation"
)

// Sweeper runs one sweep tick.
type Sweeper interface {
    SweepDeadlines(ctx context.Context) (reservation.SweepReport, error)
}

// Driver starts and stops periodic sweeping.
type Driver interface {
    Start(ctx context.Context) error
    Stop()
}

// NewDriver selects the driver named by rc.SweepDriver.
func NewDriver(rc config.ReservationConfig, redis config.RedisConfig, s Sweeper, l *slog.Logger) (Driver, error) {
    switch strings.ToLower(rc.SweepDriver) {
    case "", "ticker":
        return NewTicker(s, rc.SweepInterval, l), nil
    case "asynq":
        return NewAsynq(redis, s, rc.SweepInterval, l), nil
    }
    return nil, fmt.Errorf("unknown sweep driver %q", rc.SweepDriver)
}

// Ticker runs a job once at start and then every interval.
type Ticker struct {
    name     string
    run      func(ctx context.Context) error
    interval time.Duration
    log      *slog.Logger

    mu     sync.Mutex
    cancel context.CancelFunc
    wg     sync.WaitGroup
}

// NewTicker returns a ticker driving the deadline sweep.
func NewTicker(s Sweeper, interval time.Duration, l *slog.Logger) *Ticker {
    return newTicker("deadline sweep", interval, logger.Component(l, "sweep"), func(ctx context.Context) error {
        _, err := s.SweepDeadlines(ctx)
        return err
    })
}

func newTicker(name string, interval time.Duration, l *slog.Logger, run func(context.Context) error) *Ticker {
    return &Ticker{name: name, run: run, interval: interval, log: l}
}

// Start launches the loop.  It stops on Stop or when ctx ends.
func (t *Ticker) Start(ctx context.Context) error {
    if t.interval <= 0 {
        return fmt.Errorf("%s interval must be positive, got %s", t.name, t.interval)
    }
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.cancel != nil {
        return fmt.Errorf("%s ticker already started", t.name)
    }
    ctx, t.cancel = context.WithCancel(ctx)
    t.wg.Add(1)
    go func() {
        defer t.wg.Done()
        t.loop(ctx)
    }()
    t.log.Info(t.name+" scheduled", "driver", "ticker", "interval", t.interval.String())
    return nil
}

func (t *Ticker) loop(ctx context.Context) {
    tick := time.NewTicker(t.interval)
    defer tick.Stop()
    t.runOnce(ctx)
    for {
        select {
        case <-ctx.Done():
            return
        case <-tick.C:
            t.runOnce(ctx)
        }
    }
}

func (t *Ticker) runOnce(ctx context.Context) {
    if err := t.run(ctx); err != nil {
        t.log.Error(t.name+" failed", "err", err)
    }
}

// Stop ends the loop and waits for a running tick to finish.
func (t *Ticker) Stop() {
    t.mu.Lock()
    cancel := t.cancel
    t.mu.Unlock()
    if cancel != nil {
        cancel()
    }
    t.wg.Wait()
}
