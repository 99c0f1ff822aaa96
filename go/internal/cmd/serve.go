package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/econempire/go/internal/config"
	"github.com/mcdev12/econempire/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx, dbconfig.NewConfigFromEnv())
	if err != nil {
		return err
	}
	defer database.Close()

	services, err := setupServices(database, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Bus.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event bus")
		}
	}()

	if err := services.bootstrap(ctx, cfg); err != nil {
		return err
	}

	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped")
		}
	}()
	go func() {
		if err := services.Coordinator.RunRoundClock(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("round clock stopped")
		}
	}()

	server := setupServer(cfg.Port, services)
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
