// Command worker runs the background email queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/config"
	"github.com/sudo-init-do/tradelink/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.LogLevel, cfg.Production())

	mailer, err := alerts.NewMailer(cfg.Mail, log)
	if err != nil {
		log.WithError(err).Fatal("mailer")
	}

	srv := alerts.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err := srv.Start(alerts.NewProcessor(mailer, log).Mux()); err != nil {
		log.WithError(err).Fatal("asynq server")
	}
	log.WithField("provider", cfg.Mail.Provider).Info("worker started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down worker")
	srv.Shutdown()
}
