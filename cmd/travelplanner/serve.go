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

	"github.com/ManupaDev/multi-agent-travel-planner/adapter/uistream"
	"github.com/ManupaDev/multi-agent-travel-planner/config"
	"github.com/ManupaDev/multi-agent-travel-planner/log"
	"github.com/ManupaDev/multi-agent-travel-planner/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the travel planner API. Chat endpoints stream UI message protocol
events; see the server package for the routes.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}

		logger, err := newLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		log.SetDefaultLogger(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to the config file (default: $TRAVEL_CONFIG or ./config.yaml)")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on, overrides the config")
}

func serve(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	s := server.New(a.system,
		server.WithRequirements(a.requirements),
		server.WithLogger(logger),
		server.WithAdapter(uistream.New(uistream.WithLogger(logger))),
		server.WithMetrics(server.NewMetrics(a.registry)),
		server.WithGatherer(a.registry),
		server.WithCORSOrigins(cfg.Server.CORSOrigins...),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("listening on %s (store=%s, lock=%s, model=%s)", srv.Addr, cfg.Store.Type, cfg.Lock.Type, cfg.Model.Name)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete in %s: %v", shutdownTimeout, err)
			return srv.Close()
		}
		logger.Info("server stopped")
		return nil
	}
}
