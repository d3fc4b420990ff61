// Command adminutil holds one-off operator tasks that run against the
// database directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sudo-init-do/tradelink/internal/alerts"
	"github.com/sudo-init-do/tradelink/internal/config"
	"github.com/sudo-init-do/tradelink/internal/db"
	"github.com/sudo-init-do/tradelink/internal/logging"
	"github.com/sudo-init-do/tradelink/internal/user"
	"github.com/sudo-init-do/tradelink/internal/worker"
)

type env struct {
	cfg  *config.Config
	log  *logrus.Logger
	pool *pgxpool.Pool
}

func open(ctx context.Context, envFile string) (*env, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.Production())
	pool, err := db.Connect(ctx, cfg.Database.DSN(), log)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, pool: pool}, nil
}

func main() {
	var envFile string

	root := &cobra.Command{
		Use:          "adminutil",
		Short:        "Operator tasks for the tradelink database",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file to load")

	root.AddCommand(promoteAdminCmd(&envFile), approveWorkerCmd(&envFile))

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func promoteAdminCmd(envFile *string) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "promote-admin",
		Short: "Give an existing account the admin role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			e, err := open(ctx, *envFile)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			err = user.NewStore(e.pool).SetRoleByEmail(ctx, strings.TrimSpace(email), user.RoleAdmin)
			if errors.Is(err, user.ErrNotFound) {
				return fmt.Errorf("no user found with email %s", email)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s promoted to admin.\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user to promote")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func approveWorkerCmd(envFile *string) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "approve-worker",
		Short: "Approve a worker whose documents are pending review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			e, err := open(ctx, *envFile)
			if err != nil {
				return err
			}
			defer e.pool.Close()

			users := user.NewStore(e.pool)
			u, err := users.GetByEmail(ctx, strings.TrimSpace(email))
			if err != nil {
				return fmt.Errorf("lookup %s: %w", email, err)
			}
			if u.Role != user.RoleWorker {
				return fmt.Errorf("%s is not a worker account", email)
			}

			queue := asynq.NewClient(asynq.RedisClientOpt{Addr: e.cfg.Redis.Addr, Password: e.cfg.Redis.Password, DB: e.cfg.Redis.DB})
			defer queue.Close()
			mail := alerts.NewEnqueuer(queue, e.cfg.AppURL, int(e.cfg.JWT.ResetTTL/time.Minute), e.log)
			notifier := alerts.NewNotifier(alerts.NewStore(e.pool), mail, users, e.log)

			svc := worker.NewService(worker.NewPGStore(e.pool), notifier, e.log)
			if _, err := svc.Approve(ctx, "", u.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Worker %s approved.\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the worker to approve")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
