package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/admin"
	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/auth"
	"github.com/sudo-init-do/tradelink/internal/config"
	"github.com/sudo-init-do/tradelink/internal/db"
	"github.com/sudo-init-do/tradelink/internal/events"
	"github.com/sudo-init-do/tradelink/internal/logging"
	"github.com/sudo-init-do/tradelink/internal/marketplace"
	"github.com/sudo-init-do/tradelink/internal/messaging"
	mware "github.com/sudo-init-do/tradelink/internal/middleware"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/utils"
	"github.com/sudo-init-do/tradelink/internal/wallet"
	"github.com/sudo-init-do/tradelink/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.LogLevel, cfg.Production())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Database.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool, log); err != nil {
		log.WithError(err).Fatal("schema")
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	queue := asynq.NewClient(redisOpt)
	defer queue.Close()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	var pub events.Publisher = events.Nop{}
	if cfg.RabbitMQ.URL != "" {
		rp, err := events.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.WithError(err).Fatal("rabbitmq")
		}
		defer rp.Close()
		pub = rp
	} else {
		log.Warn("RABBITMQ_URL not set, job events are dropped")
	}

	tokens := utils.NewTokens(cfg.JWT.Secret)
	mail := alerts.NewEnqueuer(queue, cfg.AppURL, int(cfg.JWT.ResetTTL/time.Minute), log)

	users := user.NewStore(pool)
	notes := alerts.NewStore(pool)
	notifier := alerts.NewNotifier(notes, mail, users, log)

	workers := worker.NewService(worker.NewPGStore(pool), notifier, log)
	market := marketplace.NewService(marketplace.NewPGStore(pool), workers, notifier, pub, log)

	hub := messaging.NewHub(log)
	go hub.Run(ctx)
	relay := messaging.NewRedisRelay(rdb, hub, log)
	go relay.Run(ctx)
	chat := messaging.NewService(messaging.NewPGStore(pool), messaging.Deps{
		Fanout:   relay,
		Presence: hub,
		Notify:   notifier,
		Mail:     mail,
		Contacts: users,
	}, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewValidator()
	e.Use(echomw.Recover())
	e.Use(mware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	health(e, pool)
	routes(e, handlers{
		auth:     auth.NewHandler(users, tokens, mail, cfg.JWT, log),
		users:    user.NewHandler(users, log),
		workers:  worker.NewHandler(workers, log),
		market:   marketplace.NewHandler(market, log),
		chat:     messaging.NewHandler(chat, hub, cfg.CORSOrigins, log),
		alerts:   alerts.NewHandler(notes, log),
		wallet:   wallet.NewHandler(wallet.NewStore(pool), log),
		admin:    admin.NewHandler(users, workers, market, log),
		jwtGuard: mware.JWTMiddleware(tokens, users),
	})

	go func() {
		log.WithField("port", cfg.Port).Info("api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

func health(e *echo.Echo, pool *pgxpool.Pool) {
	ok := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "tradelink"})
	})
	e.GET("/health", ok)
	e.GET("/healthz", ok)
	e.GET("/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
}
