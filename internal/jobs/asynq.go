package jobs

import (
    "context"
    "crypto/tls"
    "fmt"
    "log/slog"
    "os"
    "time"

    "github.com/hibiken/asynq"

    "github.com/iliyamo/cineclic/internal/config"
    "github.com/iliyamo/cineclic/internal/logger"
)

// TypeSweep is the asynq task that runs one sweep tick.
const TypeSweep = "booking:sweep"

// Asynq registers TypeSweep as a periodic task and serves it.  With
// several instances the scheduler enqueues one task per period per
// instance; the sweep is idempotent so duplicates are harmless.
type Asynq struct {
    sweeper   Sweeper
    interval  time.Duration
    log       *slog.Logger
    opt       asynq.RedisClientOpt
    server    *asynq.Server
    scheduler *asynq.Scheduler
}

func redisOpt(rc config.RedisConfig) asynq.RedisClientOpt {
    opt := asynq.RedisClientOpt{Addr: rc.Addr, Password: rc.Password, DB: rc.DB}
    if rc.TLS {
        opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opt
}

func NewAsynq(rc config.RedisConfig, s Sweeper, interval time.Duration, l *slog.Logger) *Asynq {
    log := logger.Component(l, "sweep")
    opt := redisOpt(rc)
    return &Asynq{
        sweeper:  s,
        interval: interval,
        log:      log,
        opt:      opt,
        server: asynq.NewServer(opt, asynq.Config{
            Concurrency: 1,
            Queues:      map[string]int{"default": 1},
            Logger:      asynqLogger{log},
        }),
        scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{Logger: asynqLogger{log}}),
    }
}

// HandleSweep is the asynq handler of TypeSweep.
func (a *Asynq) HandleSweep(ctx context.Context, _ *asynq.Task) error {
    rep, err := a.sweeper.SweepDeadlines(ctx)
    if err != nil {
        return fmt.Errorf("sweep: %w", err)
    }
    a.log.Debug("sweep task done", "cancelled", rep.Cancelled, "failed", rep.Failed)
    return nil
}

// Mux routes TypeSweep to HandleSweep.
func (a *Asynq) Mux() *asynq.ServeMux {
    mux := asynq.NewServeMux()
    mux.HandleFunc(TypeSweep, a.HandleSweep)
    return mux
}

// Start registers the periodic task and starts the scheduler and the
// worker.  The first tick is enqueued right away.
func (a *Asynq) Start(ctx context.Context) error {
    if a.interval <= 0 {
        return fmt.Errorf("sweep interval must be positive, got %s", a.interval)
    }
    spec := "@every " + a.interval.String()
    opts := []asynq.Option{asynq.MaxRetry(0), asynq.Timeout(a.interval)}
    if _, err := a.scheduler.Register(spec, asynq.NewTask(TypeSweep, nil), opts...); err != nil {
        return fmt.Errorf("register %s: %w", TypeSweep, err)
    }
    if err := a.scheduler.Start(); err != nil {
        return fmt.Errorf("start scheduler: %w", err)
    }
    if err := a.server.Start(a.Mux()); err != nil {
        a.scheduler.Shutdown()
        return fmt.Errorf("start asynq server: %w", err)
    }

    client := asynq.NewClient(a.opt)
    defer client.Close()
    if _, err := client.EnqueueContext(ctx, asynq.NewTask(TypeSweep, nil), opts...); err != nil {
        a.log.Warn("initial sweep not enqueued", "err", err)
    }
    a.log.Info("deadline sweep scheduled", "driver", "asynq", "spec", spec)
    return nil
}

// Stop shuts the scheduler down and waits for the running task.
func (a *Asynq) Stop() {
    a.scheduler.Shutdown()
    a.server.Shutdown()
}

// asynqLogger routes asynq's logging through slog.
type asynqLogger struct{ l *slog.Logger }

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

func (a asynqLogger) Fatal(args ...interface{}) {
    a.l.Error(fmt.Sprint(args...))
    os.Exit(1)
}
