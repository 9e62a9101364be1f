// Egret - OPD claims adjudication that deploys in 60 seconds.
// Copyright (c) 2025 opensource.health
// Licensed under the Apache License 2.0

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

	"github.com/opensource-health/egret/internal/advisor"
	"github.com/opensource-health/egret/internal/api"
	"github.com/opensource-health/egret/internal/bus"
	"github.com/opensource-health/egret/internal/cache"
	"github.com/opensource-health/egret/internal/domain"
	"github.com/opensource-health/egret/internal/fraud"
	"github.com/opensource-health/egret/internal/history"
	"github.com/opensource-health/egret/internal/pipeline"
	"github.com/opensource-health/egret/internal/repository"
	"github.com/opensource-health/egret/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("EGRET_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting egret",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("EGRET_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	// Intake mode override
	switch os.Getenv("EGRET_MODE") {
	case "sync":
		cfg.IntakeMode = domain.ModeSync
	case "async":
		cfg.IntakeMode = domain.ModeAsync
	}

	if path := os.Getenv("EGRET_POLICY"); path != "" {
		cfg.PolicyPath = path
	}
	if path := os.Getenv("EGRET_FRAUD_RULES"); path != "" {
		cfg.FraudRulesPath = path
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Advisor.Enabled = true
		cfg.Advisor.APIKey = key
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"intake_mode", cfg.IntakeMode,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"advisor", cfg.Advisor.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load policy terms
	policy := domain.DefaultPolicy()
	if cfg.PolicyPath != "" {
		loaded, err := domain.LoadPolicyFile(cfg.PolicyPath)
		if err != nil {
			slog.Error("failed to load policy file", "path", cfg.PolicyPath, "error", err)
			os.Exit(1)
		}
		policy = loaded
		slog.Info("policy loaded from file", "path", cfg.PolicyPath, "version", policy.Version)
	} else {
		slog.Info("using built-in policy terms", "version", policy.Version)
	}

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize member history service
	historySvc := history.NewService(repo, cacheImpl)
	slog.Info("history service initialized")

	// Initialize advisor (second-opinion evaluator)
	adv, err := advisor.New(cfg.Advisor)
	if err != nil {
		slog.Error("failed to initialize advisor", "error", err)
		os.Exit(1)
	}
	slog.Info("advisor initialized", "name", adv.Name())

	// Initialize adjudication pipeline
	p, err := pipeline.New(policy, adv, logger)
	if err != nil {
		slog.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}

	// Layer fraud rules: built-in defaults, then file, then database
	if err := loadFraudRules(ctx, cfg, repo, p.FraudEngine()); err != nil {
		slog.Error("failed to load fraud rules", "error", err)
		os.Exit(1)
	}
	slog.Info("fraud engine initialized", "rules_count", p.FraudEngine().RulesCount())

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if cfg.IntakeMode == domain.ModeAsync || os.Getenv("EGRET_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, p, historySvc)

		// Get tenant IDs to process (from environment or default)
		tenantIDs := []string{}
		if envTenants := os.Getenv("EGRET_TENANTS"); envTenants != "" {
			// Could parse comma-separated list here
			tenantIDs = []string{envTenants}
		}

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, p, historySvc, Version, cfg.IntakeMode)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("egret is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("egret shutdown complete")
}

// GlobalTenantID is used for fraud rules that apply to all tenants.
const GlobalTenantID = "*"

// loadFraudRules layers the fraud indicator table: built-in defaults
// come with the engine; a rules file replaces them; database rules
// replace both when any exist.
func loadFraudRules(ctx context.Context, cfg *domain.Config, repo domain.Repository, engine *fraud.Engine) error {
	if cfg.FraudRulesPath != "" {
		fileRules, err := fraud.LoadRulesFile(cfg.FraudRulesPath)
		if err != nil {
			return err
		}
		if err := engine.ReloadRules(fileRules); err != nil {
			return err
		}
		slog.Info("fraud rules loaded from file", "path", cfg.FraudRulesPath, "count", len(fileRules))
	}

	dbRules, err := repo.ListFraudRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list fraud rules from database", "error", err)
		return nil // Keep current rules - database rules can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading fraud rules from database", "count", len(dbRules))
		return engine.ReloadRules(dbRules)
	}

	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 EGRET                    ║")
	fmt.Println("  ║       OPD Claims Adjudication Engine      ║")
	fmt.Println("  ║      Every claim decided in seconds.      ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Intake:   %s\n", cfg.IntakeMode)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /claims                    - Submit a claim for adjudication")
	fmt.Println("    GET  /claims                    - List recent claims")
	fmt.Println("    GET  /claims/{id}               - Get claim by ID")
	fmt.Println("    GET  /claims/{id}/result        - Get adjudication result")
	fmt.Println("    POST /claims/{id}/appeal        - Appeal a decided claim")
	fmt.Println("    GET  /claims/{id}/appeals       - List appeals for a claim")
	fmt.Println("    GET  /policy                    - View policy terms")
	fmt.Println("    GET  /policy/exclusions         - View exclusion groups")
	fmt.Println("    GET  /policy/network-hospitals  - View network hospitals")
	fmt.Println("    GET  /fraud-rules               - List fraud indicator rules")
	fmt.Println("    POST /fraud-rules               - Create a fraud rule")
	fmt.Println("    POST /fraud-rules/reload        - Hot-reload rules from database")
	fmt.Println("    GET  /health                    - Health check")
	fmt.Println()
}
