package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itsdone-dev/itsdone/db"
	"github.com/itsdone-dev/itsdone/internal/auth"
	"github.com/itsdone-dev/itsdone/internal/config"
	"github.com/itsdone-dev/itsdone/internal/handlers"
	"github.com/itsdone-dev/itsdone/internal/logger"
	"github.com/itsdone-dev/itsdone/internal/mail"
	"github.com/itsdone-dev/itsdone/internal/middleware"
	"github.com/itsdone-dev/itsdone/internal/realtime"
	"github.com/itsdone-dev/itsdone/internal/router"
	"github.com/itsdone-dev/itsdone/internal/scheduler"
	"github.com/itsdone-dev/itsdone/internal/services"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:           "itsdone",
	Short:         "Time tracking and invoicing API",
	Long:          `Its Done tracks billable hours per client, raises invoices and warns when monthly hour thresholds are reached.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the threshold scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		return serve(cmd.Context(), cfg, log)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := connect(cfg); err != nil {
			return err
		}
		defer db.Close()

		log.Info("database migrated")
		return nil
	},
}

var checkThresholdsCmd = &cobra.Command{
	Use:   "check-thresholds",
	Short: "Run one threshold sweep over all users and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := connect(cfg); err != nil {
			return err
		}
		defer db.Close()

		sender, closeMail, err := mailSender(cfg, log)
		if err != nil {
			return err
		}
		defer closeMail()

		notifier := &services.Notifier{Mail: sender, SMS: smsSender(cfg, log), Log: log}
		thresholds := services.NewThresholdService(db.DB, notifier, cfg.DefaultAlertThreshold)

		raised, err := thresholds.CheckAll(cmd.Context(), time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("Threshold sweep raised %d alert(s)\n", raised)
		return nil
	},
}

var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Deliver queued emails from RabbitMQ over SMTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		if cfg.AMQPURL == "" {
			return errors.New("AMQP_URL is required for the mail worker")
		}

		queue, err := mail.DialQueue(cfg.AMQPURL, cfg.MailQueue)
		if err != nil {
			return err
		}
		defer queue.Close()

		var delivery mail.Sender = mail.LogSender{Log: log}
		if cfg.SMTP.Enabled() {
			delivery = mail.NewSMTPSender(cfg.SMTP)
		} else {
			log.Warn("SMTP not configured, queued emails will only be logged")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return queue.Consume(ctx, delivery, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(checkThresholdsCmd)
	rootCmd.AddCommand(mailWorkerCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and installs the process-wide logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	if err := config.LoadEnvFile(); err != nil {
		return config.Config{}, nil, fmt.Errorf("load .env file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	return cfg, log, nil
}

func connect(cfg config.Config) error {
	if err := db.ConnectDatabase(cfg.DBDriver, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		db.Close()
		return fmt.Errorf("migrate database: %w", err)
	}

	return nil
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := auth.InitJWT(cfg.JWTSecret, cfg.JWTTTL); err != nil {
		return err
	}

	if err := connect(cfg); err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rate limiting fails open", zap.Error(err))
		}
	}

	sender, closeMail, err := mailSender(cfg, log)
	if err != nil {
		return err
	}
	defer closeMail()

	hub := realtime.NewHub(cfg.Origins(), log)

	notifier := &services.Notifier{
		Mail:     sender,
		SMS:      smsSender(cfg, log),
		Realtime: hub,
		Log:      log,
	}

	store := uploadStore(ctx, cfg, log)

	thresholds := services.NewThresholdService(db.DB, notifier, cfg.DefaultAlertThreshold)
	scheduler.Initialize(thresholds, cfg.ThresholdSweepInterval, log)
	defer scheduler.Shutdown()

	h := handlers.New(cfg, notifier, store, hub)
	h.TriggerThresholdCheck = scheduler.Trigger
	h.Probes = dependencyProbes(cfg, redisClient)

	r := router.NewRouter(h, router.Options{
		Origins:            cfg.Origins(),
		UploadDir:          cfg.UploadDir,
		Redis:              redisClient,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Log:                log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
