package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	myhttp "github.com/macromill/activity-insights/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a := newApp()

	a.log.Info("starting activity-insights", slog.String("env", a.cfg.Env))

	fetchService, err := a.newFetchService(ctx)
	if err != nil {
		return fmt.Errorf("failed to init github client: %w", err)
	}

	srv := myhttp.NewServer(a.log, fetchService, a.newQueryService())
	httpServer := &http.Server{
		Addr:        net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:     srv.Routes(),
		ReadTimeout: a.cfg.Server.Timeout,
	}

	errChan := make(chan error, 1)

	go startServer(a.log, httpServer, errChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %v", err)

	case <-ctx.Done():
		a.log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %v", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("error listening and serving: %v", err)
	}
}
