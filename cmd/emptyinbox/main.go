package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/emptyinbox/emptyinbox/adapters/events"
	"github.com/emptyinbox/emptyinbox/adapters/store"
	"github.com/emptyinbox/emptyinbox/config"
	"github.com/emptyinbox/emptyinbox/internal/passkey"
	"github.com/emptyinbox/emptyinbox/ports"
	"github.com/emptyinbox/emptyinbox/service"
	"github.com/emptyinbox/emptyinbox/transport/http"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	eventPub, err := newEventPublisher(cfg, logger)
	if err != nil {
		return err
	}

	rp, err := passkey.New(passkey.Config{
		Domain: cfg.Service.Domain,
		RPName: cfg.Service.RPName,
		Dev:    cfg.Server.Dev,
	})
	if err != nil {
		return err
	}

	sessions := service.NewSessionManager(s, cfg.Auth.SessionTTL)
	authService := service.NewAuthService(s, sessions, eventPub, logger,
		cfg.Service.Domain, cfg.Service.TOSURL, cfg.Auth.ChallengeTTL)
	passkeyService := service.NewPasskeyService(s, sessions, eventPub, logger, rp, cfg.Auth.ChallengeTTL)
	mailboxService := service.NewMailboxService(s, logger, cfg.Service.Domain)
	paymentService := service.NewPaymentService(s, eventPub, logger, cfg.Payments.ReceivingAddress)
	sweeper := service.NewSweeper(s, logger, cfg.Auth.SweepEvery)

	router := http.SetupRouter(http.RouterConfig{
		Auth:         authService,
		Passkeys:     passkeyService,
		Sessions:     sessions,
		Mailboxes:    mailboxService,
		Payments:     paymentService,
		IngestSecret: cfg.Auth.IngestSecret,
		Dev:          cfg.Server.Dev,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	server := &nethttp.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "domain", cfg.Service.Domain)
		if err := server.ListenAndServe(); !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newEventPublisher wires the Redis stream publisher, or a no-op one
// when no broker is configured.
func newEventPublisher(cfg *config.Config, logger *slog.Logger) (ports.EventPublisher, error) {
	if cfg.Events.RedisURL == "" {
		logger.Info("events disabled, no redis_url configured")
		return events.NewNopPublisher(), nil
	}

	opts, err := redis.ParseURL(cfg.Events.RedisURL)
	if err != nil {
		return nil, err
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: redis.NewClient(opts)},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return events.NewWatermillPublisher(publisher), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
