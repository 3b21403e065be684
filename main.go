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

	"bitwise74/todo-api/app"
	"bitwise74/todo-api/config"
	"bitwise74/todo-api/db"
	"bitwise74/todo-api/internal"
	"bitwise74/todo-api/internal/service"
	"bitwise74/todo-api/pkg/security"
	"bitwise74/todo-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.App)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		zap.L().Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.New(cfg.Database)
	if err != nil {
		return err
	}

	images, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage, %w", cfg.Storage.Type, err)
	}

	var blacklist security.Blacklist
	if cfg.Redis.Addr != "" {
		rb, err := security.NewRedisBlacklist(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rb.Close()

		blacklist = rb
	} else {
		mb := security.NewMemoryBlacklist()
		defer mb.Close()

		zap.L().Warn("No redis configured, blacklisted tokens are kept in memory")
		blacklist = mb
	}

	mailer, err := service.NewMailer(cfg.Mail)
	if err != nil {
		return err
	}

	var notifier service.Notifier = mailer
	if cfg.Mail.Async {
		client := asynq.NewClient(service.RedisOpt(cfg.Redis))
		defer client.Close()

		worker, mux := service.NewMailWorker(cfg.Redis, mailer)
		if err := worker.Start(mux); err != nil {
			return fmt.Errorf("failed to start mail worker, %w", err)
		}
		defer worker.Shutdown()

		notifier = service.NewQueuedNotifier(client)
	}

	d := internal.NewDeps(cfg, conn, security.NewArgon(), blacklist, notifier, images)

	cr := cron.New()
	if err := d.Cleaner.Schedule(cr, cfg.Tokens.CleanupEvery, cfg.Accounts.CleanupEvery); err != nil {
		return err
	}
	cr.Start()
	defer func() { <-cr.Stop().Done() }()

	router, err := app.NewRouter(d)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Host.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr), zap.String("url", cfg.Host.BaseURL()))

		if cfg.Host.SSL.Enabled {
			errc <- srv.ListenAndServeTLS(cfg.Host.SSL.CertificatePath, cfg.Host.SSL.CertificateKeyPath)
		} else {
			errc <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		zap.L().Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
