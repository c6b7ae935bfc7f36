package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"expense-client/internal/config"
	"expense-client/internal/handlers"
	"expense-client/internal/logger"
	"expense-client/internal/storage"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Production, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	h := handlers.NewHandlers(db, log)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: h.RequestLogger(setupRouter(h)),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server listening", zap.String("addr", srv.Addr), zap.String("db", cfg.DBPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRouter(h *handlers.Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /transactions", h.ListTransactions)
	mux.HandleFunc("GET /transactions/stats", h.Statistics)

	// Mutations act on the user named by the bearer token.
	mux.Handle("POST /transactions", h.AuthMiddleware(http.HandlerFunc(h.CreateTransaction)))
	mux.Handle("DELETE /transactions/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteTransaction)))

	return mux
}
