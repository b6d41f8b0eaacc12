package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"churchinventory/internal/core/container"
	"churchinventory/internal/core/routes"
	"churchinventory/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		if err := cfg.Validate(); err != nil {
			return err
		}

		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("Connected to the database")

		if cfg.AutoMigrate {
			if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, log); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		app, err := container.NewAppContainer(ctx, cfg, db, log)
		if err != nil {
			return err
		}
		router, err := routes.NewRouter(app)
		if err != nil {
			return err
		}
		go app.RateLimiter.Run(ctx)

		server := &http.Server{
			Addr:              cfg.AppHost,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("HTTP server listening", zap.String("addr", cfg.AppHost))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	},
}
