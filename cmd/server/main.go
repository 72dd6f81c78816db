package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/auditorium-seat-reservation/internal/clock"
	"github.com/iliyamo/auditorium-seat-reservation/internal/config"
	"github.com/iliyamo/auditorium-seat-reservation/internal/database"
	"github.com/iliyamo/auditorium-seat-reservation/internal/handler"
	"github.com/iliyamo/auditorium-seat-reservation/internal/middleware"
	"github.com/iliyamo/auditorium-seat-reservation/internal/queue"
	"github.com/iliyamo/auditorium-seat-reservation/internal/repository"
	"github.com/iliyamo/auditorium-seat-reservation/internal/router"
	"github.com/iliyamo/auditorium-seat-reservation/internal/service"
	"github.com/iliyamo/auditorium-seat-reservation/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := migrations.Apply(ctx, db); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}
	if cfg.NormalizeSeats {
		n, err := repository.NormalizeSeatColumns(ctx, db)
		if err != nil {
			log.Fatalf("normalize seat columns: %v", err)
		}
		log.Infof("normalized %d legacy seat columns", n)
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewBookingLimiter(config.LoadRateLimitConfig(), rdb)
	publisher := queue.NewPublisher(cfg.AMQPURL)
	go func() {
		if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("reservation publisher stopped: %v", err)
		}
	}()

	arbiterCfg := config.LoadArbiterConfig()
	arbiterLog := log.New("arbiter")
	arbiterLog.SetLevel(cfg.LogLevel)
	shows := repository.NewShowRepo(db)
	engine := service.NewEngine(
		shows,
		repository.NewUserRepo(db),
		repository.NewReservationRepo(db),
		clock.NewSystem(),
		service.WithRetry(arbiterCfg.MaxAttempts, arbiterCfg.BaseDelay),
		service.WithCutoff(arbiterCfg.BookingCutoff),
		service.WithListener(service.Listeners{cache, publisher}),
		service.WithLogger(arbiterLog),
	)

	consumer := queue.NewConsumer(cfg.AMQPURL, cfg.ReservationLogPath)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("reservation consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.LogLevel)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	h := handler.NewReservationHandler(engine)
	catalog := service.NewCatalog(shows, clock.NewSystem())
	router.RegisterRoutes(e, db)
	router.RegisterShows(e, handler.NewShowHandler(catalog), cfg.JWTSecret, cache.Middleware())
	router.RegisterReservations(e, h, cfg.JWTSecret, limiter.Middleware(), cache.Middleware())
	router.RegisterAdmin(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
