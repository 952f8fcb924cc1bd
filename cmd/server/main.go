package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/api"
	"github.com/freewebtopdf/block-engine/internal/cache"
	"github.com/freewebtopdf/block-engine/internal/config"
	"github.com/freewebtopdf/block-engine/internal/conflict"
	"github.com/freewebtopdf/block-engine/internal/converter"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/health"
	"github.com/freewebtopdf/block-engine/internal/interaction"
	"github.com/freewebtopdf/block-engine/internal/merger"
	"github.com/freewebtopdf/block-engine/internal/splitter"
	"github.com/freewebtopdf/block-engine/internal/storage"
)

// components is everything the HTTP layer needs, built from the configuration
type components struct {
	manager  *interaction.Manager
	store    *storage.Store
	cache    *cache.LRUCache
	disabled []string
}

func main() {
	healthCheck := flag.Bool("health-check", false, "Perform health check and exit")
	flag.Parse()

	if *healthCheck {
		performHealthCheck()
		return
	}

	setupLogger()

	log.Info().Msg("Block engine starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create required directories")
	}

	logStartupConfig(cfg)

	ctx := context.Background()
	disabledRules := conflict.NewDisabledRules(cfg.Storage.DataDir)
	built, err := buildComponents(ctx, cfg, disabledRules)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build engine")
	}

	healthChecker := health.NewSystemHealthChecker(built.store, built.manager, built.cache)

	routerConfig := api.RouterConfig{
		CORSOrigins: cfg.Security.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimitRPS = cfg.RateLimit.RPS
		routerConfig.RateLimitBurst = cfg.RateLimit.Burst
	}

	router := api.SetupRouter(api.RouterDependencies{
		Engine:        built.manager,
		Store:         built.store,
		Cache:         built.cache,
		Validator:     domain.NewValidator(),
		HealthChecker: healthChecker,
		DisabledRules: built.disabled,
	}, routerConfig)

	app := router.App
	app.Server().ReadTimeout = cfg.Server.ReadTimeout
	app.Server().WriteTimeout = cfg.Server.WriteTimeout

	setupGracefulShutdown(app, router.Cleanup)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().
		Int("port", cfg.Server.Port).
		Str("addr", serverAddr).
		Msg("Starting HTTP server")

	if err := app.Listen(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

// buildComponents loads the disabled-rule file and the persisted documents, then
// wires the three subsystems into an interaction manager
func buildComponents(ctx context.Context, cfg *config.Config, disabledRules *conflict.DisabledRules) (*components, error) {
	if err := disabledRules.Load(); err != nil {
		return nil, fmt.Errorf("failed to load disabled rules: %w", err)
	}
	disabled := conflict.Merge(cfg.Engine.DisabledRules, disabledRules.Names())
	if len(disabled) > 0 {
		log.Info().Strs("rules", disabled).Msg("Rules disabled")
	}

	resolutionCache := cache.NewLRUCache(cfg.Engine.ResolutionCacheSize)

	manager := interaction.NewManager(
		merger.NewMerger(
			domain.FilterRules(merger.DefaultRules(), disabled),
			resolutionCache,
			merger.Settings{
				DefaultSeparator: cfg.Engine.DefaultSeparator,
				MaxBulkBlocks:    cfg.Engine.MaxBulkBlocks,
			},
		),
		splitter.NewSplitter(splitter.Settings{
			MaxSplitParts: cfg.Engine.MaxSplitParts,
			MinPartLength: cfg.Engine.MinPartLength,
			WordsPerBlock: cfg.Engine.WordsPerBlock,
		}),
		converter.NewConverter(domain.FilterRules(converter.DefaultRules(), disabled)),
		interaction.Settings{MaxHistorySize: cfg.Engine.MaxHistory},
	)

	for _, report := range manager.AnalyzeRules() {
		for _, finding := range report.Findings {
			log.Warn().
				Str("table", report.Table).
				Str("kind", string(finding.Kind)).
				Str("rule", finding.Rule).
				Msg(finding.Message)
		}
	}

	store := storage.NewStoreWithConfig(storage.DefaultStoreConfig(cfg.Storage.DataDir, cfg.Storage.Persist))
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	return &components{
		manager:  manager,
		store:    store,
		cache:    resolutionCache,
		disabled: disabled,
	}, nil
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339

	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if os.Getenv("LOG_FORMAT") == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func logStartupConfig(cfg *config.Config) {
	log.Info().
		Int("server_port", cfg.Server.Port).
		Dur("server_read_timeout", cfg.Server.ReadTimeout).
		Dur("server_write_timeout", cfg.Server.WriteTimeout).
		Int("server_body_limit", cfg.Server.BodyLimit).
		Int("engine_max_history", cfg.Engine.MaxHistory).
		Int("engine_max_split_parts", cfg.Engine.MaxSplitParts).
		Int("engine_max_bulk_blocks", cfg.Engine.MaxBulkBlocks).
		Int("engine_resolution_cache_size", cfg.Engine.ResolutionCacheSize).
		Str("storage_data_dir", cfg.Storage.DataDir).
		Bool("storage_persist", cfg.Storage.Persist).
		Strs("security_cors_origins", cfg.Security.CORSOrigins).
		Bool("rate_limit_enabled", cfg.RateLimit.Enabled).
		Str("logging_level", cfg.Logging.Level).
		Str("logging_format", cfg.Logging.Format).
		Msg("Configuration loaded successfully")
}

func setupGracefulShutdown(app *fiber.App, cleanup func()) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		log.Info().Msg("Received shutdown signal, initiating graceful shutdown")

		if cleanup != nil {
			cleanup()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info().Msg("Stopping HTTP server...")
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during HTTP server shutdown")
		}

		log.Info().Msg("Graceful shutdown completed")
		os.Exit(0)
	}()
}

func performHealthCheck() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{
		Timeout: 3 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
