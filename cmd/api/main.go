package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/talenthub/hub/internal/api/handlers"
	"github.com/talenthub/hub/internal/api/middleware"
	"github.com/talenthub/hub/internal/config"
	"github.com/talenthub/hub/internal/embeddings"
	"github.com/talenthub/hub/internal/idgen"
	"github.com/talenthub/hub/internal/normalizer"
	"github.com/talenthub/hub/internal/observability"
	"github.com/talenthub/hub/internal/repository"
	"github.com/talenthub/hub/internal/schema"
	"github.com/talenthub/hub/internal/service"
	"github.com/talenthub/hub/internal/vectorindex"
	"github.com/talenthub/hub/pkg/database"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Configure slog with the log level from config
	setupLogging(cfg.LogLevel)

	// Load the profile schema (file or built-in default)
	var profileSchema *schema.Schema
	if cfg.SchemaPath != "" {
		profileSchema, err = schema.Load(cfg.SchemaPath)
		if err != nil {
			slog.Error("Failed to load schema", "error", err, "path", cfg.SchemaPath)
			os.Exit(1)
		}

		slog.Info("Loaded schema", "path", cfg.SchemaPath,
			"columns", len(profileSchema.Columns), "collections", profileSchema.Collections)
	} else {
		profileSchema = schema.Default()
		slog.Info("Using built-in schema", "collections", profileSchema.Collections)
	}

	// Initialize database connection and bootstrap the profile table
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	profilesRepo := repository.NewProfilesRepository(db, cfg.TableName, profileSchema)
	if err := profilesRepo.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	// Build the vector index, one collection per embeddable column
	vectorStore, err := vectorindex.New(profileSchema.Collections, cfg.EmbeddingDimension, func(o *vectorindex.Options) {
		o.DataDir = cfg.IndexDataDir
	})
	if err != nil {
		slog.Error("Failed to build vector index", "error", err)
		os.Exit(1)
	}

	// Closed on the shutdown path below, after the HTTP server stops.
	if err := vectorStore.Recover(ctx); err != nil {
		slog.Error("Failed to recover vector index from WAL", "error", err)
		os.Exit(1)
	}

	// Initialize the embedding client
	var embeddingClient embeddings.Client

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		embeddingClient = embeddings.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		slog.Info("Embedding provider: openai", "model", cfg.EmbeddingModel)
	default:
		embeddingClient = embeddings.NewTEIClient(cfg.EmbeddingURL,
			embeddings.WithRateLimit(cfg.EmbeddingRateLimit))
		slog.Info("Embedding provider: tei", "url", cfg.EmbeddingURL, "rate_limit", cfg.EmbeddingRateLimit)
	}

	// Id generation and payload normalization
	ids, err := idgen.New(cfg.IDNodeID)
	if err != nil {
		slog.Error("Failed to initialize id generator", "error", err, "node_id", cfg.IDNodeID)
		os.Exit(1)
	}

	norm := normalizer.New(profileSchema, ids)

	// Services
	ingestService := service.NewIngestService(service.IngestServiceParams{
		Normalizer:  norm,
		Repo:        profilesRepo,
		Vectors:     vectorStore,
		Embedder:    embeddingClient,
		Collections: profileSchema.Collections,
		BatchSize:   cfg.EmbeddingBatchSize,
	})

	var queryCache *lru.Cache[string, []float32]
	if cfg.SearchQueryCacheSize > 0 {
		queryCache, err = lru.New[string, []float32](cfg.SearchQueryCacheSize)
		if err != nil {
			slog.Error("Failed to create query embedding cache", "error", err)
			os.Exit(1)
		}
	}

	searchService := service.NewSearchService(service.SearchServiceParams{
		Embedder:   embeddingClient,
		Vectors:    vectorStore,
		Repo:       profilesRepo,
		EF:         cfg.SearchEF,
		QueryCache: queryCache,
	})

	// Handlers and routes
	ingestHandler := handlers.NewIngestHandler(ingestService, nil)
	searchHandler := handlers.NewSearchHandler(searchService, nil)
	infoHandler := handlers.NewInfoHandler(profilesRepo, vectorStore, profileSchema, cfg.TableName, nil)
	healthHandler := handlers.NewHealthHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /insert_data", ingestHandler.Upload)
	mux.HandleFunc("POST /regist_data", ingestHandler.Upload) // legacy alias
	mux.HandleFunc("POST /search", searchHandler.Search)
	mux.HandleFunc("GET /info", infoHandler.Info)
	mux.HandleFunc("GET /health", healthHandler.Check)

	// Middleware chain: request id first, then access logging, then body limit
	var handler http.Handler = mux
	handler = middleware.MaxBody(cfg.MaxRequestBodyBytes)(handler)
	handler = middleware.Logging(slog.Default())(handler)
	handler = middleware.RequestID(handler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if err := vectorStore.Close(); err != nil {
		slog.Error("Failed to close vector index", "error", err)
	}

	slog.Info("Server exited")
}

// setupLogging configures slog with the specified log level
func setupLogging(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := observability.NewRequestContextHandler(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(slog.New(handler))
}
