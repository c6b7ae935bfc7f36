package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-client/internal/auth"
	"expense-client/internal/config"
	"expense-client/internal/expenses"
	"expense-client/internal/kvstore"
	"expense-client/internal/logger"
	"expense-client/internal/mockauth"
	"expense-client/internal/router"
	"expense-client/internal/storage"

	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite key-value database")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "Expense store: local or remote")
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "Transactions API base URL for the remote backend")
	fs.StringVar(&cfg.KV, "kv", cfg.KV, "Key-value backend: sqlite, redis or memory")
	fs.StringVar(&cfg.Redis.Addr, "redis", cfg.Redis.Addr, "Redis address for the redis backend")
	fs.DurationVar(&cfg.AuthLatency, "latency", cfg.AuthLatency, "Artificial delay of the mock auth service")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Development, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	backend, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()
	kv := kvstore.New(backend, log)

	svc, err := mockauth.NewService(mockauth.WithLatency(cfg.AuthLatency))
	if err != nil {
		return fmt.Errorf("failed to start auth service: %w", err)
	}

	session := auth.NewStore(ctx, svc, kv, auth.WithLogger(log))
	nav := router.New(router.NewGuard(session, log), log)
	session.SetNavigator(nav)

	var ledger expenses.Store
	switch cfg.Backend {
	case config.BackendRemote:
		ledger = expenses.NewRemote(cfg.APIURL, session, &http.Client{Timeout: cfg.HTTPTimeout}, log)
	default:
		ledger = expenses.NewLocal(ctx, kv, log)
	}

	a := &app{
		in:      bufio.NewScanner(stdin),
		stdin:   stdin,
		out:     stdout,
		session: session,
		nav:     nav,
		ledger:  ledger,
		now:     time.Now,
	}
	return a.loop(ctx)
}

// openKV opens the configured key-value backend and returns its closer.
func openKV(ctx context.Context, cfg *config.Client) (kvstore.Backend, func(), error) {
	switch cfg.KV {
	case config.KVMemory:
		return kvstore.NewMemory(), func() {}, nil
	case config.KVRedis:
		rdb, err := kvstore.NewRedis(ctx, kvstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return rdb, func() { rdb.Close() }, nil
	default:
		db, err := storage.NewDB(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, func() { db.Close() }, nil
	}
}

// readPassword reads a password without echo from a terminal, or the next
// input line otherwise.
func readPassword(stdin io.Reader, lines *bufio.Scanner) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	if lines.Scan() {
		return lines.Text(), nil
	}
	if err := lines.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
