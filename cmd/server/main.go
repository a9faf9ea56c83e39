package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"hubgate/internal/access"
	"hubgate/internal/access/token"
	"hubgate/internal/audit"
	"hubgate/internal/connection"
	"hubgate/internal/gateway"
	"hubgate/internal/gateway/tracer"
	"hubgate/internal/platform/config"
	"hubgate/internal/platform/health"
	"hubgate/internal/platform/httpserver"
	"hubgate/internal/platform/logger"
	"hubgate/internal/ratelimit"
	"hubgate/internal/registry"
	"hubgate/internal/seeder"
	httptransport "hubgate/internal/transport/http"
	"hubgate/pkg/secrets"
)

// main wires the hub's services, seeds the declared state, and runs the
// HTTP server. Business logic lives in the internal packages.
func main() {
	log := logger.New()

	configPath := os.Getenv("HUBGATE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("loading configuration failed", "error", err, "path", configPath)
		os.Exit(1)
	}

	log.Info("initializing hubgate",
		"addr", cfg.Server.Addr,
		"environment", cfg.Hub.Environment,
		"models", len(cfg.Models),
		"tenants", len(cfg.Tenants),
	)

	auditStore := audit.NewInMemoryStore()
	auditor := audit.NewLogger(log, auditStore)

	reg := registry.New(
		registry.WithLogger(log),
		registry.WithMetrics(registry.NewMetrics()),
	)

	conns := connection.New(connection.NewInMemory(), reg,
		connection.WithLogger(log),
		connection.WithMetrics(connection.NewMetrics()),
		connection.WithAuditor(auditor),
	)

	ledger, closeLedger, err := openLedger(cfg.Access.LedgerPath)
	if err != nil {
		log.Error("opening grant ledger failed", "error", err, "path", cfg.Access.LedgerPath)
		os.Exit(1)
	}
	defer closeLedger()

	enforcer := access.New(ledger,
		access.WithLogger(log),
		access.WithAuditor(auditor),
	)

	signingKey := cfg.Access.TokenSigningKey
	if signingKey == "" {
		// Ephemeral key: minted backend tokens die with the process.
		signingKey, err = secrets.Generate()
		if err != nil {
			log.Error("generating signing key failed", "error", err)
			os.Exit(1)
		}
		log.Warn("no token signing key configured, using an ephemeral one")
	}
	minter := token.New(signingKey, cfg.Access.TokenTTL)

	seed := seeder.New(reg, conns, enforcer, seeder.WithLogger(log))
	report, err := seed.Seed(context.Background(), cfg)
	if err != nil {
		log.Error("seeding hub state failed", "error", err)
		os.Exit(1)
	}
	for _, t := range report.Tenants {
		// Plaintext credentials surface exactly once, here.
		log.Info("tenant connection issued",
			"tenant_id", t.TenantID.String(),
			"connection_id", t.ConnectionID.String(),
			"credential", t.Credential,
		)
	}

	router := gateway.New(conns, reg,
		gateway.NewHubExchanger(enforcer, minter, report.GatewayPrincipal),
		ratelimit.NewStore(),
		gateway.Config{
			DefaultAPIVersion: cfg.Gateway.DefaultAPIVersion,
			RateLimitCalls:    cfg.Gateway.RateLimitCalls,
			RateLimitWindow:   cfg.Gateway.RateLimitWindow,
			DispatchTimeout:   cfg.Gateway.DispatchTimeout,
		},
		gateway.WithLogger(log),
		gateway.WithMetrics(gateway.NewMetrics()),
		gateway.WithTracer(tracer.NewOTel()),
	)

	healthHandler := health.New(cfg.Hub.Environment)
	if ledgerPinger, ok := ledger.(interface{ Ping() error }); ok {
		healthHandler.RegisterCheck("grant_ledger", ledgerPinger.Ping)
	}

	handler := httptransport.NewRouter(httptransport.Deps{
		Registry:    registry.NewHandler(reg, log),
		Connections: connection.NewHandler(conns, log),
		Access:      access.NewHandler(enforcer, log),
		Gateway:     gateway.NewHandler(router),
		Health:      healthHandler,
	}, log)

	srv := httpserver.New(cfg.Server.Addr, handler)

	log.Info("starting http server", "addr", cfg.Server.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// openLedger picks the grant ledger backend: sqlite when a path is
// configured, in-memory otherwise.
func openLedger(path string) (access.Ledger, func(), error) {
	if path == "" {
		return access.NewLedgerInMemory(), func() {}, nil
	}
	store, err := access.NewLedgerSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}
