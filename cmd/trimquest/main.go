package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dukerupert/trimquest/internal/config"
	"github.com/dukerupert/trimquest/internal/database"
	"github.com/dukerupert/trimquest/internal/logging"
	"github.com/dukerupert/trimquest/internal/push"
	"github.com/dukerupert/trimquest/internal/server"
)

func main() {
	app := &cli.App{
		Name:  "trimquest",
		Usage: "notification service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server and cleanup jobs",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "listen port, overrides TRIMQUEST_PORT",
					},
				},
			},
			{
				Name:   "vapid-keys",
				Usage:  "generate a VAPID key pair for web push",
				Action: vapidKeys,
			},
			{
				Name:   "cleanup",
				Usage:  "prune stale push subscriptions and old notifications once",
				Action: runCleanup,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.Setup(cfg.LogLevel, cfg.LogFormat), nil
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if p := c.String("port"); p != "" {
		cfg.Port = p
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, cfg, logger)
	srv.StartLimiterCleanup(ctx)

	scheduler := srv.Scheduler()
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start cleanup scheduler: %w", err)
	}
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trimquest listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func vapidKeys(c *cli.Context) error {
	public, private, err := push.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "TRIMQUEST_VAPID_PUBLIC_KEY=%s\nTRIMQUEST_VAPID_PRIVATE_KEY=%s\n", public, private)
	return nil
}

func runCleanup(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	result, err := server.New(db, cfg, logger).Scheduler().RunOnce(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %d push subscriptions, %d notifications\n", result.Subscriptions, result.Notifications)
	return nil
}
