// Command authd runs the clipstream auth service: account registration,
// login, token refresh, and logout over HTTP, with sessions in Redis.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipstream/auth"
	"github.com/clipstream/auth/account"
	"github.com/clipstream/auth/httpapi"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr = flag.String("listen", envOr("AUTHD_LISTEN", ":8080"), "HTTP listen address")
		redisAddr  = flag.String("redis-addr", envOr("AUTHD_REDIS_ADDR", "localhost:6379"), "redis address")
		logLevel   = flag.String("log-level", envOr("AUTHD_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	)
	flag.Parse()

	log := newLogger(*logLevel)

	// Secrets only ever come from the environment.
	accessSecret := os.Getenv("AUTHD_ACCESS_SECRET")
	refreshSecret := os.Getenv("AUTHD_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		return errors.New("AUTHD_ACCESS_SECRET and AUTHD_REFRESH_SECRET must be set")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{*redisAddr},
	})
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis unreachable at %s: %w", *redisAddr, err)
	}

	cfg := auth.DefaultConfig()
	cfg.Token.AccessSecret = []byte(accessSecret)
	cfg.Token.RefreshSecret = []byte(refreshSecret)

	engine, err := auth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccounts(account.NewStore(client, "")).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           httpapi.New(engine, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", *listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
