// Package main implements the OpenBay VHC API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OpenBayHQ/openbay-mvp/engine/findings"
	"github.com/OpenBayHQ/openbay-mvp/engine/inspect"
	"github.com/OpenBayHQ/openbay-mvp/engine/memstore"
	"github.com/OpenBayHQ/openbay-mvp/engine/registry"
	"github.com/OpenBayHQ/openbay-mvp/pkg/embed"
	"github.com/OpenBayHQ/openbay-mvp/pkg/metrics"
	"github.com/OpenBayHQ/openbay-mvp/pkg/mid"
	"github.com/OpenBayHQ/openbay-mvp/pkg/natsutil"
	"github.com/OpenBayHQ/openbay-mvp/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	SeedFile   string
	NATSURL    string
	Neo4jURL   string
	Neo4jUser  string
	Neo4jPass  string
	QdrantURL  string
	Collection string
	OllamaURL  string
	EmbedModel string
	EmbedDims  int
	CORSOrigin string
	RateRPS    float64
	RateBurst  int
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		SeedFile:   envOr("SEED_FILE", ""),
		NATSURL:    envOr("NATS_URL", ""),
		Neo4jURL:   envOr("NEO4J_URL", ""),
		Neo4jUser:  envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:  envOr("NEO4J_PASS", "password"),
		QdrantURL:  envOr("QDRANT_URL", ""),
		Collection: envOr("QDRANT_COLLECTION", "vhc-findings"),
		OllamaURL:  envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel: envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedDims:  envIntOr("EMBED_DIMS", 768),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		RateRPS:    envFloatOr("RATE_RPS", 20),
		RateBurst:  envIntOr("RATE_BURST", 40),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	// Missing .env is fine; real deployments configure the environment.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	reg.CollectRuntime("vhc_api", 15*time.Second)

	// --- Store + seed data ---
	store := memstore.New()
	if cfg.SeedFile != "" {
		if err := store.SeedFile(ctx, cfg.SeedFile); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seed loaded", "file", cfg.SeedFile)
	}

	// --- Lifecycle events (optional) ---
	opts := inspect.Options{Metrics: reg}
	if cfg.NATSURL != "" {
		nc, err := natsutil.Connect(cfg.NATSURL, "vhc-api")
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		opts.Publisher = natsPublisher{nc: nc}
		logger.Info("nats connected", "url", cfg.NATSURL)
	}

	svc := inspect.New(store, logger, opts)

	// --- Vehicle registry (optional) ---
	var vehicles vehicleDirectory
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		vehicles = &guardedRegistry{
			reg:     registry.New(driver),
			breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		}
		logger.Info("vehicle registry connected", "url", cfg.Neo4jURL)
	}

	// --- Similar-findings search (optional) ---
	var finder similarSearcher
	if cfg.QdrantURL != "" {
		fs, err := findings.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer fs.Close()
		if err := fs.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
			return fmt.Errorf("qdrant collection: %w", err)
		}
		finder = &guardedFinder{
			finder:  findings.NewFinder(fs, embed.NewClient(cfg.OllamaURL, cfg.EmbedModel)),
			svc:     svc,
			breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		}
		logger.Info("findings index ready", "url", cfg.QdrantURL, "collection", cfg.Collection)
	}

	srv := newServer(svc, vehicles, finder, logger)
	mux := srv.routes()
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("vhc-api"),
		mid.RateLimit(cfg.RateRPS, cfg.RateBurst),
		mid.RequestID(),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
