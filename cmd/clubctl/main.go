// Command clubctl runs the operator tasks that the server otherwise runs on
// a schedule: schema migration, the weekly reset, the reset reminder, the
// equipment sweep and role promotion.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/config"
	"github.com/iliyamo/sportsclub/internal/database"
	"github.com/iliyamo/sportsclub/internal/jobs"
	"github.com/iliyamo/sportsclub/internal/queue"
	"github.com/iliyamo/sportsclub/internal/repository"
	"github.com/iliyamo/sportsclub/internal/service"
)

// App holds the dependencies shared by every command.
type App struct {
	cfg       config.Config
	log       *zap.Logger
	db        *sql.DB
	users     *repository.UserRepo
	sweeper   *service.Sweeper
	tasks     *jobs.Tasks
	publisher *queue.Publisher
}

var (
	envFile string
	app     *App
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:          "clubctl",
		Short:        "Sports club booking operations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(promoteCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		closeApp()
		os.Exit(1)
	}
}

// initApp loads config, opens the database and builds the sweeper. The
// broker is optional here as well.
func initApp() error {
	config.LoadDotEnv(envFile)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg.Env, cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	app = &App{cfg: cfg, log: log, db: db, users: repository.NewUserRepo(db)}

	sink := &service.StoreNotifier{Store: repository.NewNotificationRepo(db)}
	if pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange); err != nil {
		log.Warn("rabbitmq unavailable, notifications are inbox only", zap.Error(err))
	} else {
		app.publisher = pub
		sink.Publisher = pub
	}
	rule, err := jobs.ParseResetRule(cfg.ResetRule)
	if err != nil {
		return fmt.Errorf("RESET_RULE: %w", err)
	}
	app.sweeper = service.NewSweeper(repository.NewBookingRepo(db), app.users, sink, log)
	app.tasks = &jobs.Tasks{Sweeper: app.sweeper, Tokens: repository.NewTokenRepo(db), Log: log, Rule: &rule}
	return nil
}

func closeApp() {
	if app == nil {
		return
	}
	if app.publisher != nil {
		_ = app.publisher.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
	if app.log != nil {
		_ = app.log.Sync()
	}
	app = nil
}
