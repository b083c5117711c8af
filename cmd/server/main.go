// Copyright 2026 The WaveFleet Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavefleet/wavefleet/internal/approval"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/authorize"
	"github.com/wavefleet/wavefleet/internal/config"
	"github.com/wavefleet/wavefleet/internal/identity"
	"github.com/wavefleet/wavefleet/internal/membership"
	"github.com/wavefleet/wavefleet/internal/observability/logger"
	"github.com/wavefleet/wavefleet/internal/observability/metrics"
	"github.com/wavefleet/wavefleet/internal/observability/tracing"
	"github.com/wavefleet/wavefleet/internal/policy"
	"github.com/wavefleet/wavefleet/internal/store/postgres"
	"github.com/wavefleet/wavefleet/internal/tenant"
	"github.com/wavefleet/wavefleet/internal/tenantaccess"
	transportHTTP "github.com/wavefleet/wavefleet/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTELEnabled: cfg.Observability.OTELEnabled,
	})
	slog.Info("starting wavefleet authorization service")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter := metrics.New(metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	tenantRepo := postgres.NewTenantRepository(db)
	globalRoleRepo := postgres.NewGlobalRoleRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	approvalRepo := postgres.NewApprovalRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()

	// Initialize services
	identityService := identity.NewService(globalRoleRepo, auditLogger)
	tenantService := tenant.NewService(tenantRepo, auditLogger)
	membershipService := membership.NewService(membershipRepo, tenantRepo, auditLogger)
	accessResolver := tenantaccess.NewResolver(membershipRepo, cfg.Cache.TenantAccessTTL)

	// Policy decision client with decision caching
	var policyClient policy.Client = policy.NewHTTPClient(
		cfg.PolicyEngine.URL,
		cfg.PolicyEngine.DecisionPath,
		cfg.PolicyEngine.Timeout,
	)
	policyClient = policy.NewCachingClient(policyClient, cfg.Cache.PolicyDecisionTTL)

	approvalService := approval.NewService(approvalRepo, accessResolver, auditLogger)

	gateMetrics, err := authorize.NewMetrics(meter)
	if err != nil {
		slog.Error("failed to create authorization metrics", logger.Error(err))
	}
	gate := authorize.NewGate(accessResolver, policyClient, approvalService, auditLogger, gateMetrics)

	// Approval expiry sweeper
	sweeper := approval.NewSweeper(approvalRepo, auditLogger, cfg.Approval.TTL)
	if err := sweeper.Start(cfg.Approval.SweepSchedule); err != nil {
		slog.Error("failed to start approval sweeper", logger.Error(err))
		os.Exit(1)
	}
	defer sweeper.Stop()

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		identityService,
		tenantService,
		membershipService,
		accessResolver,
		gate,
		approvalService,
		auditLogger,
	)

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
