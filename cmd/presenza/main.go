package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/presenza/presenza/pkg/config"
	"github.com/presenza/presenza/pkg/httputil"
	"github.com/presenza/presenza/pkg/observability"
	"github.com/presenza/presenza/pkg/scan"
	"github.com/presenza/presenza/pkg/session"
	"github.com/presenza/presenza/pkg/sso"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var (
		store       session.Store
		redisClient *redis.Client
	)
	switch cfg.Session.StoreType {
	case "redis":
		redisStore, err := session.NewRedisStore(cfg.Session.Redis)
		if err != nil {
			logger.WithError(err).Error("failed to connect session store")
			os.Exit(1)
		}
		store = redisStore
		redisClient = redisStore.Client()
		logger.Info("using redis session store")
	default:
		store = session.NewMemoryStore()
		logger.Warn("using in-memory session store; not suitable for multi-instance deployment")
	}

	signer, err := session.NewSigner([]byte(cfg.Session.Secret))
	if err != nil {
		logger.WithError(err).Error("invalid session secret")
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		if memStore, ok := store.(*session.MemoryStore); ok {
			metrics.RegisterSessionGauge(func() float64 {
				return float64(memStore.Len())
			})
		}
	}

	provider, err := sso.NewSAMLProvider(sso.Settings{
		IdPSSOURL:      cfg.SAML.IdPSSOURL,
		IdPIssuer:      cfg.SAML.IdPIssuer,
		IdPCertificate: cfg.SAML.IdPCertificate,
		BaseURL:        cfg.SAML.BaseURL,
		SPCertificate:  cfg.SAML.SPCertificate,
		SPPrivateKey:   cfg.SAML.SPPrivateKey,
		SignRequests:   cfg.SAML.SignRequests,
		NameIDFormat:   cfg.SAML.NameIDFormat,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialize SAML service provider")
		os.Exit(1)
	}

	bridge := session.NewBridge(store, signer, logger, metrics, cfg.Session.SecureCookies)
	register := scan.NewRegister(store, cfg.Session.ScanTTL, cfg.Session.TTL, logger, metrics)
	consumer := sso.NewConsumer(store, register, cfg.Session.TTL, logger, metrics)
	dispatcher := sso.NewDispatcher(cfg.Redirect.WebOrigin, cfg.Redirect.AppBase, signer)
	handlers := sso.NewHandlers(store, signer, bridge, register, consumer, provider, dispatcher, cfg.Session.TTL, logger)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		httputil.MaxBytesMiddleware(1 << 20),
		bridge.Middleware,
	}
	if metrics != nil {
		middlewares = append([]func(http.Handler) http.Handler{metrics.HTTPMiddleware}, middlewares...)
	}
	handler := httputil.Chain(middlewares...)(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	go func() {
		logger.Infof("health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
			os.Exit(1)
		}
	}()

	go func() {
		logger.Infof("presenza auth bridge listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown failed")
		os.Exit(1)
	}
}
