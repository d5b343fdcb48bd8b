// Mealpland is the meal-planning daemon.
//
// It serves the unified meal-planning workflow over HTTP: one request
// carries a raw user message, and the daemon detects profile updates,
// recalls dietary history, generates meal options, and persists the
// resulting plan.
//
// Usage:
//
//	# Start with defaults
//	mealpland
//
//	# Start with a config file
//	mealpland -config /etc/mealpland/config.yaml
//
// Every config key can be overridden via MEALPLAND_* environment
// variables, e.g. MEALPLAND_SERVER_PORT=9090.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/config"
	"github.com/nourishlabs/mealpland/internal/embeddings"
	httpapi "github.com/nourishlabs/mealpland/internal/http"
	"github.com/nourishlabs/mealpland/internal/llm"
	"github.com/nourishlabs/mealpland/internal/logging"
	"github.com/nourishlabs/mealpland/internal/nutrition"
	"github.com/nourishlabs/mealpland/internal/orchestrator"
	"github.com/nourishlabs/mealpland/internal/planstore"
	"github.com/nourishlabs/mealpland/internal/profile"
	"github.com/nourishlabs/mealpland/internal/session"
	"github.com/nourishlabs/mealpland/internal/telemetry"
	"github.com/nourishlabs/mealpland/internal/vectorstore"
	"github.com/nourishlabs/mealpland/internal/workflows"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mealpland\nVersion:    %s\nCommit:     %s\nBuild Date: %s\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run initializes every dependency and blocks until ctx is canceled:
// config, logger, NATS plan store, vector-backed profile memory, model
// and embedding clients, the orchestrator, and the HTTP server.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting mealpland",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorstore_provider", cfg.VectorStore.Provider),
	)

	tel, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	deps, err := initDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}
	defer deps.Close()

	orch, err := orchestrator.New(orchestrator.Deps{
		Generator:       deps.llmClient,
		Profiles:        deps.profiles,
		Nutrition:       deps.nutritionLookup(),
		Plans:           deps.plans,
		Sessions:        session.NewStore(),
		ProfileTriggers: cfg.Detection.ProfileTriggers,
		MinMeals:        cfg.Planner.MinMeals,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	srv, err := httpapi.NewServer(orch, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	srv.Echo().GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger.Info("server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("api_endpoint", "/api/meal-plan"),
		zap.String("metrics_endpoint", "/metrics"),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// dependencies holds all infrastructure collaborators.
type dependencies struct {
	natsConn  *nats.Conn
	store     vectorstore.Store
	profiles  *profile.Service
	plans     *planstore.Store
	llmClient *llm.Client
	nutrition *nutrition.Client
	logger    *zap.Logger
}

// Close releases infrastructure resources.
func (d *dependencies) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
	if d.natsConn != nil {
		d.natsConn.Close()
	}
}

// nutritionLookup adapts the optional nutrition client to the workflow
// interface; a nil client means planning degrades to its marker text.
func (d *dependencies) nutritionLookup() workflows.NutritionLookup {
	if d.nutrition == nil {
		return nil
	}
	return d.nutrition
}

func initDependencies(cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.NATS.URL, err)
	}
	logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))

	plans, err := planstore.New(nc, cfg.NATS.Bucket, logger)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating plan store: %w", err)
	}

	embedder, err := embeddings.NewService(cfg.Embedding)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	logger.Info("embedding service initialized",
		zap.String("base_url", cfg.Embedding.BaseURL),
		zap.String("model", cfg.Embedding.Model),
	)

	store, err := vectorstore.NewStore(cfg.VectorStore, embedder, logger)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	profiles, err := profile.NewService(store, logger)
	if err != nil {
		nc.Close()
		_ = store.Close()
		return nil, fmt.Errorf("creating profile service: %w", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM, logger)
	if err != nil {
		nc.Close()
		_ = store.Close()
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	// Nutrition lookup is optional: without credentials the planning
	// pipeline degrades rather than failing at startup.
	var nutritionClient *nutrition.Client
	nutritionClient, err = nutrition.NewClient(cfg.Nutrition, logger)
	if err != nil {
		logger.Warn("nutrition lookup disabled", zap.Error(err))
		nutritionClient = nil
	}

	return &dependencies{
		natsConn:  nc,
		store:     store,
		profiles:  profiles,
		plans:     plans,
		llmClient: llmClient,
		nutrition: nutritionClient,
		logger:    logger,
	}, nil
}
