package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/subtlepseudonym/forcelog/config"
	"github.com/subtlepseudonym/forcelog/server"
	"github.com/subtlepseudonym/forcelog/session"
)

func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rig log viewer API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}

	cmd.Flags().String("env", ".env", "Optional dotenv file")
	cmd.Flags().String("addr", "", "Listen address, overrides FORCELOG_SERVER_ADDR")

	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	dotenv, _ := flags.GetString("env")

	cfg, err := config.Load(dotenv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr, _ := flags.GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format, _ = flags.GetString("log-format")
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	pipeline, err := cfg.NewPipeline()
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Pipeline:       pipeline,
		Store:          session.NewStore(cfg.Server.SessionTTL, logger),
		Logger:         logger,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, srv, cfg.Server.SweepInterval)

	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", cfg.Server.Addr),
			slog.String("group_by", pipeline.GroupBy.String()),
		)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func sweepSessions(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			srv.Sweep(now)
		}
	}
}
