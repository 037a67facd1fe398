package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/reliefpath/internal/api/handlers"
	mw "github.com/Harshitk-cp/reliefpath/internal/api/middleware"
	"github.com/Harshitk-cp/reliefpath/internal/buildconfig"
	"github.com/Harshitk-cp/reliefpath/internal/config"
	"github.com/Harshitk-cp/reliefpath/internal/domain"
	"github.com/Harshitk-cp/reliefpath/internal/embedding"
	"github.com/Harshitk-cp/reliefpath/internal/llm"
	"github.com/Harshitk-cp/reliefpath/internal/service"
	"github.com/Harshitk-cp/reliefpath/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and the long-lived graph for lifecycle management.
type App struct {
	Router    *chi.Mux
	Graph     *service.KnowledgeGraph
	metrics   *mw.MetricsCollector
	passages  *store.PassageStore
	startTime time.Time
}

func NewApp(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	// External clients via provider factory
	var embeddingClient domain.EmbeddingClient
	var llmClient domain.LLMClient

	llmProvider := config.LLMProvider()
	embeddingProvider := config.EmbeddingProvider()

	var err error
	llmClient, err = llm.NewClient(llmProvider, config.LLMAPIKey(), config.LLMModel())
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", llmProvider), zap.Error(err))
	} else {
		logger.Info("LLM client initialized", zap.String("provider", llmProvider))
	}

	embeddingClient, err = embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey(), config.EmbeddingModel())
	if err != nil {
		logger.Warn("Embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else {
		logger.Info("Embedding client initialized", zap.String("provider", embeddingProvider))
	}

	// Stores
	passageStore := store.NewPassageStore(db, embeddingClient)
	graphStore := store.NewGraphStore(db)

	var criteriaStore domain.CriteriaStore = store.NewCriteriaStore(db)
	if path := config.CriteriaFile(); path != "" {
		fileStore, err := store.LoadCriteriaFile(path)
		if err != nil {
			return nil, err
		}
		criteriaStore = fileStore
		logger.Info("criteria loaded from file", zap.String("path", path), zap.Int("topics", len(fileStore.All())))
	}

	// Services
	var classifier service.ComplexityStrategy = service.NewRuleBasedComplexityStrategy()
	if llmClient != nil {
		classifier = service.NewLLMComplexityStrategy(llmClient, config.LLMCallTimeout(), logger)
	}

	retriever := service.NewIterativeRetriever(passageStore, config.DefaultMaxIterations(), logger)
	synthesizer := service.NewAnswerSynthesizer(llmClient, config.LLMCallTimeout(), config.MaxContextChunks(), logger)

	graph := service.NewKnowledgeGraph(config.GraphMergeThreshold(), graphStore, llmClient, logger)
	if err := graph.Load(ctx); err != nil {
		logger.Warn("knowledge graph load failed, starting empty", zap.Error(err))
	} else {
		stats := graph.Stats()
		logger.Info("knowledge graph loaded",
			zap.Int("entities", stats.EntityCount),
			zap.Int("relations", stats.RelationCount))
	}

	orchestrator := service.NewOrchestrator(classifier, retriever, synthesizer, service.OrchestratorConfig{
		MaxIterations:     config.DefaultMaxIterations(),
		TopK:              config.DefaultTopK(),
		RequestDeadline:   config.RequestDeadline(),
		ParallelRetrieval: config.ParallelRetrieval(),
	}, logger)

	evalCfg := service.DefaultEvaluatorConfig()
	tolerances, err := config.ToleranceDefaults()
	if err != nil {
		logger.Warn("ignoring malformed tolerance defaults", zap.Error(err))
	}
	evalCfg.ToleranceDefaults = tolerances
	evaluator := service.NewEligibilityEvaluator(evalCfg, service.NewRecommendationEngine())
	eligibilitySvc := service.NewEligibilityService(criteriaStore, evaluator, retriever, synthesizer, graph,
		config.DefaultTopK(), config.GraphMaxPathDepth(), logger)

	// Handlers
	queryHandler := handlers.NewQueryHandler(orchestrator)
	eligibilityHandler := handlers.NewEligibilityHandler(eligibilitySvc, logger)
	criteriaHandler := handlers.NewCriteriaHandler(criteriaStore)
	graphHandler := handlers.NewGraphHandler(graph, config.GraphMaxPathDepth(), logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Graph:     graph,
		metrics:   mw.NewMetricsCollector(),
		passages:  passageStore,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(app.metrics.Middleware)                                       // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/version", versionHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", queryHandler.Ask)
		r.Post("/eligibility", eligibilityHandler.Check)

		r.Route("/criteria", func(r chi.Router) {
			r.Get("/", criteriaHandler.List)
			r.Get("/{topic}", criteriaHandler.Get)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Post("/ingest", graphHandler.Ingest)
			r.Post("/extract", graphHandler.Extract)
			r.Post("/consolidate", graphHandler.Consolidate)
			r.Get("/export", graphHandler.Export)
			r.Get("/stats", graphHandler.Stats)
			r.Get("/paths", graphHandler.Paths)
		})
	})

	return app, nil
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	info := buildconfig.VersionInfo()
	info["go_version"] = runtime.Version()
	writeJSON(w, http.StatusOK, info)
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		passageCount, err := app.passages.Count(r.Context())
		if err != nil {
			passageCount = -1
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"http":           app.metrics.Snapshot(),
			"graph":          app.Graph.Stats(),
			"passages":       passageCount,
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.Retriever       = (*store.PassageStore)(nil)
	_ domain.CriteriaStore   = (*store.CriteriaStore)(nil)
	_ domain.CriteriaStore   = (*store.FileCriteriaStore)(nil)
	_ domain.GraphStore      = (*store.GraphStore)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.LLMClient       = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient       = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
)
