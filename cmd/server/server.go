package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	"github.com/iudanet/livedesk/internal/config"
	"github.com/iudanet/livedesk/internal/server/handlers"
	"github.com/iudanet/livedesk/internal/server/jwt"
	"github.com/iudanet/livedesk/internal/server/metrics"
	"github.com/iudanet/livedesk/internal/server/middleware"
	"github.com/iudanet/livedesk/internal/server/realtime"
	"github.com/iudanet/livedesk/internal/server/storage/sqlite"
)

const (
	// tokenPurgeInterval период очистки истекших отзывов токенов
	tokenPurgeInterval = time.Hour

	loginPath  = "/api/v1/auth/login"
	loginRate  = 1.0
	loginBurst = 5
)

// unloggedPaths запрашиваются мониторингом слишком часто для access лога
var unloggedPaths = []string{"/api/v1/health", "/metrics"}

// server собирает зависимости backend и владеет их жизненным циклом
type server struct {
	logger   *slog.Logger
	cfg      *config.Server
	store    *sqlite.Storage
	broker   realtime.Broker
	hub      *realtime.Hub
	metrics  *metrics.Metrics
	handler  http.Handler
	limiters []*middleware.RateLimiter
}

func newServer(ctx context.Context, logger *slog.Logger, cfg *config.Server) (*server, error) {
	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	broker, err := newBroker(logger, cfg.Broker)
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	m := metrics.New()
	hub := realtime.NewHub(logger, broker, m)
	if err := hub.Start(); err != nil {
		return nil, multierr.Combine(err, broker.Close(), store.Close())
	}

	s := &server{
		logger:  logger,
		cfg:     cfg,
		store:   store,
		broker:  broker,
		hub:     hub,
		metrics: m,
	}
	s.handler = s.routes(jwt.NewService([]byte(cfg.JWTSecret), cfg.TokenTTL))
	return s, nil
}

func newBroker(logger *slog.Logger, cfg config.Broker) (realtime.Broker, error) {
	switch cfg.Kind {
	case config.BrokerNATS:
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		broker, err := realtime.NewNATSBroker(logger, cfg.NATSURL, "livedesk-"+host)
		if err != nil {
			return nil, err
		}
		logger.Info("Realtime events go through NATS", "url", cfg.NATSURL)
		return broker, nil
	default:
		return realtime.NewMemoryBroker(), nil
	}
}

// routes регистрирует REST API, websocket и служебные эндпоинты
func (s *server) routes(tokens *jwt.Service) http.Handler {
	authHandler := handlers.NewAuthHandler(s.logger, s.store, s.store, tokens)
	records := handlers.NewRecordsHandler(s.logger, s.store, s.hub, s.cfg.PageSize)
	live := handlers.NewRealtimeHandler(s.logger, s.hub)
	health := handlers.NewHealthHandler(s.logger, s.store, Version)

	auth := middleware.AuthMiddleware(s.logger, tokens, s.store)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()

	mux.HandleFunc("POST "+loginPath, authHandler.Login)
	mux.Handle("POST /api/v1/auth/logout", protected(authHandler.Logout))

	mux.Handle("GET /api/v1/realtime", protected(live.Serve))
	mux.Handle("PUT /api/v1/tags/reorder", protected(records.ReorderTags))
	mux.Handle("POST /api/v1/chats/{id}/messages", protected(records.PostMessage))

	mux.Handle("GET /api/v1/{collection}", protected(records.List))
	mux.Handle("POST /api/v1/{collection}", protected(records.Create))
	mux.Handle("PUT /api/v1/{collection}/{id}", protected(records.Update))
	mux.Handle("DELETE /api/v1/{collection}/{id}", protected(records.Delete))

	mux.HandleFunc("GET /api/v1/health", health.Health)
	mux.Handle("GET /metrics", s.metrics.Handler())

	chain := []func(http.Handler) http.Handler{
		middleware.RecoveryMiddleware(s.logger),
		middleware.MetricsMiddleware(s.metrics),
		middleware.LoggingWithSkip(s.logger, unloggedPaths),
	}
	if s.cfg.RateLimit > 0 {
		general := middleware.NewRateLimiter(s.cfg.RateLimit, s.cfg.RateBurst, s.logger)
		login := middleware.NewRateLimiter(min(loginRate, s.cfg.RateLimit), loginBurst, s.logger)
		s.limiters = append(s.limiters, general, login)

		chain = append(chain, middleware.RateLimitByPathMiddleware(
			[]middleware.PathRateLimit{{Path: loginPath, Limiter: login}},
			general,
			s.logger,
		))
	}
	return middleware.Chain(mux, chain...)
}

// Run обслуживает HTTP до отмены ctx, затем останавливает сервер
func (s *server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	purgeDone := make(chan struct{})
	go func() {
		defer close(purgeDone)
		s.purgeRevokedTokens(purgeCtx, clock.RealClock{}, tokenPurgeInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", "addr", s.cfg.Addr, "version", Version, "broker", s.cfg.Broker.Kind)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	// websocket соединения перехвачены и не отслеживаются Shutdown, их закрывает hub
	err := multierr.Combine(runErr, httpServer.Shutdown(shutdownCtx))

	stopPurge()
	<-purgeDone

	return multierr.Append(err, s.Close())
}

// Close освобождает hub, брокер и базу данных
func (s *server) Close() error {
	for _, limiter := range s.limiters {
		limiter.Stop()
	}
	return multierr.Combine(
		s.hub.Close(),
		s.broker.Close(),
		s.store.Close(),
	)
}

// purgeRevokedTokens периодически удаляет отзывы токенов, срок которых истек
func (s *server) purgeRevokedTokens(ctx context.Context, clk clock.WithTicker, interval time.Duration) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			deleted, err := s.store.DeleteExpiredTokens(ctx, clk.Now())
			if err != nil {
				s.logger.Error("Failed to purge revoked tokens", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Debug("Purged revoked tokens", "count", deleted)
			}
		}
	}
}
