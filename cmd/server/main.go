package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cineclic/internal/config"
	"github.com/iliyamo/cineclic/internal/database"
	"github.com/iliyamo/cineclic/internal/handler"
	"github.com/iliyamo/cineclic/internal/jobs"
	"github.com/iliyamo/cineclic/internal/logger"
	"github.com/iliyamo/cineclic/internal/middleware"
	"github.com/iliyamo/cineclic/internal/queue"
	"github.com/iliyamo/cineclic/internal/realtime"
	"github.com/iliyamo/cineclic/internal/repository"
	"github.com/iliyamo/cineclic/internal/reservation"
	"github.com/iliyamo/cineclic/internal/router"
)

const shutdownTimeout = 15 * time.Second

// notifier is a reservation.Notifier that may hold broker resources.
type notifier interface {
	reservation.Notifier
	Close() error
}

type amqpNotifier struct{ *queue.AMQPPublisher }

func (amqpNotifier) Close() error { return nil }

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	l := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(l)

	if err := run(cfg, l); err != nil {
		l.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, l *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	redisCfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		l.Warn("redis unavailable; rate limiting, caching and fan-out disabled", "addr", redisCfg.Addr)
	} else {
		defer rdb.Close()
	}

	// Notifications
	n, err := newNotifier(cfg.Broker, l)
	if err != nil {
		return err
	}
	if n != nil {
		defer n.Close()
	}
	if cfg.Broker.Consume {
		if err := startConsumer(ctx, cfg, l); err != nil {
			return err
		}
	}

	// Reservation core
	opts := []reservation.Option{reservation.WithLogger(l)}
	if n != nil {
		opts = append(opts, reservation.WithNotifier(n))
	}
	coord := reservation.New(reservation.NewSQLStore(db), reservation.Config{
		HoldTTL:       cfg.Reservation.HoldTTL,
		PaymentWindow: cfg.Reservation.PaymentWindow,
		CancelCutoff:  cfg.Reservation.CancelCutoff,
		MaxSeats:      cfg.Reservation.MaxSeats,
		NotifyTimeout: cfg.Broker.PublishTimeout,
	}, opts...)

	hub := realtime.NewHub(coord, realtime.NewRedisFanout(rdb, l), l)
	coord.SetBroadcaster(hub)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	sweep, err := jobs.NewDriver(cfg.Reservation, redisCfg, coord, l)
	if err != nil {
		return err
	}
	if err := sweep.Start(context.Background()); err != nil {
		return err
	}

	var purge *jobs.Ticker
	if cfg.Account.RequireVerification {
		purge = jobs.NewPurgeTicker(repository.NewUserRepo(db), cfg.Account.UnverifiedTTL, cfg.Account.PurgeInterval, l)
		if err := purge.Start(context.Background()); err != nil {
			sweep.Stop()
			return err
		}
	}

	e := newEcho(cfg, db, rdb, coord, hub, queue.NewMailer(cfg.SMTP, l), l)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		l.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		l.Info("shutting down")
	case runErr = <-errc:
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		l.Error("http shutdown", "err", err)
	}
	// Clients go first so their holds are released while the coordinator
	// still accepts work.
	if err := hub.Close(sctx); err != nil {
		l.Error("realtime shutdown", "err", err)
	}
	stopHub()
	sweep.Stop()
	if purge != nil {
		purge.Stop()
	}
	if err := coord.Close(sctx); err != nil {
		l.Error("coordinator shutdown", "err", err)
	}
	return runErr
}

func newNotifier(bc config.BrokerConfig, l *slog.Logger) (notifier, error) {
	switch bc.Transport {
	case "rabbitmq", "amqp":
		return amqpNotifier{queue.NewAMQPPublisher(bc, l)}, nil
	case "kafka":
		return queue.NewKafkaPublisher(bc, l)
	case "none", "":
		l.Warn("booking notifications disabled")
		return nil, nil
	}
	return nil, errors.New("unknown NOTIFY_TRANSPORT " + bc.Transport)
}

func startConsumer(ctx context.Context, cfg config.Config, l *slog.Logger) error {
	d := queue.NewDispatcher(cfg.Broker, queue.NewMailer(cfg.SMTP, l), cfg.Broker.LogDir, l)
	switch cfg.Broker.Transport {
	case "rabbitmq", "amqp":
		c := queue.NewAMQPConsumer(cfg.Broker, d, l)
		go func() {
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				l.Error("notification consumer stopped", "err", err)
			}
		}()
	case "kafka":
		c, err := queue.NewKafkaConsumer(cfg.Broker, d, l)
		if err != nil {
			return err
		}
		go func() {
			defer c.Close()
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				l.Error("notification consumer stopped", "err", err)
			}
		}()
	}
	return nil
}

func newEcho(cfg config.Config, db *sql.DB, rdb *redis.Client, coord *reservation.Coordinator, hub *realtime.Hub, mailer queue.Mailer, l *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	rl := config.LoadRateLimitConfig()
	e.Use(middleware.RequestLog(l))
	e.Use(echomw.Recover())
	limiter := middleware.NewTokenBucket(rl, rdb, l)
	bookingLimiter := middleware.NewTokenBucket(rl.ForBookings(), rdb, l)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	codes := repository.NewAccountTokenRepo(db)
	movies := repository.NewMovieRepo(db)
	rooms := repository.NewRoomRepo(db)
	screenings := repository.NewScreeningRepo(db)
	bookings := repository.NewBookingRepo(db)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, codes, mailer, l), cfg.JWTSecret, limiter)
	router.RegisterCatalog(e, router.Catalog{
		Movies:     handler.NewMovieHandler(movies, screenings, l),
		Rooms:      handler.NewRoomHandler(rooms, coord, l),
		Screenings: handler.NewScreeningHandler(screenings, rooms, bookings, l),
	}, cfg.JWTSecret, limiter, cache)
	router.RegisterBookings(e, handler.NewBookingHandler(coord, bookings, l), cfg.JWTSecret, bookingLimiter)
	router.RegisterRealtime(e, handler.NewRealtimeHandler(hub, l), cfg.JWTSecret)
	return e
}
