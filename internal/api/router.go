package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/davidpm1021/dungeonsanddumbells/internal/api/handlers"
	mw "github.com/davidpm1021/dungeonsanddumbells/internal/api/middleware"
	"github.com/davidpm1021/dungeonsanddumbells/internal/config"
	"github.com/davidpm1021/dungeonsanddumbells/internal/domain"
	"github.com/davidpm1021/dungeonsanddumbells/internal/embedding"
	"github.com/davidpm1021/dungeonsanddumbells/internal/llm"
	"github.com/davidpm1021/dungeonsanddumbells/internal/service"
	"github.com/davidpm1021/dungeonsanddumbells/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Compression  *service.CompressionWorker
	Director     *service.Director
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	characterStore := store.NewCharacterStore(db)
	qualityStore := store.NewQualityStore(db)
	entityStore := store.NewEntityStore(db)
	relStore := store.NewRelationshipStore(db)
	eventStore := store.NewEventStore(db)
	episodeStore := store.NewEpisodeStore(db)
	summaryStore := store.NewSummaryStore(db)
	storyletStore := store.NewStoryletStore(db)

	// External clients via provider factory
	llmClient, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		logger.Warn("generation client initialization failed, falling back to mock",
			zap.String("provider", config.LLMProvider()), zap.Error(err))
		llmClient = llm.NewMockClient()
	} else {
		logger.Info("generation client initialized", zap.String("provider", config.LLMProvider()))
	}

	embeddingClient, err := embedding.NewClient(config.EmbeddingProvider(), embedding.Options{
		APIKey:  config.EmbeddingAPIKey(),
		BaseURL: config.EmbeddingBaseURL(),
		Model:   config.EmbeddingModel(),
	})
	if err != nil {
		logger.Warn("embedding client initialization failed, falling back to mock",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
		embeddingClient = embedding.NewMockClient()
	} else {
		logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))
	}

	// Services
	workingLimit := config.WorkingMemoryLimit()
	memorySvc := service.NewMemoryService(eventStore, episodeStore, summaryStore,
		embeddingClient, llmClient, workingLimit, logger)
	graphSvc := service.NewGraphService(entityStore, relStore, service.NewHeuristicExtractor(), logger)
	storyletSvc := service.NewStoryletService(storyletStore, qualityStore, logger)
	assembler := service.NewContextAssembler(memorySvc, graphSvc, storyletSvc, logger)
	needEval := service.NewNeedEvaluator(logger)
	generator := service.NewContentGenerator(llmClient, config.GenerationTimeout(), logger)
	validator := service.NewValidator(llmClient, qualityStore, storyletStore,
		config.ValidationThreshold(), logger)
	checker := service.NewSelfConsistencyChecker(generator, logger)
	director := service.NewDirector(assembler, needEval, generator, validator, checker,
		storyletSvc, graphSvc, memorySvc,
		service.DirectorConfig{
			MaxAttempts: config.MaxRevisionAttempts(),
			BandLow:     config.ConsistencyBandLow(),
			BandHigh:    config.ConsistencyBandHigh(),
		},
		logger)
	compressionWorker := service.NewCompressionWorker(memorySvc, eventStore,
		workingLimit, config.CompressionSweepInterval(), logger)

	// Handlers
	characterHandler := handlers.NewCharacterHandler(characterStore)
	qualityHandler := handlers.NewQualityHandler(storyletSvc)
	graphHandler := handlers.NewGraphHandler(graphSvc)
	memoryHandler := handlers.NewMemoryHandler(memorySvc)
	eventHandler := handlers.NewEventHandler(memorySvc)
	storyletHandler := handlers.NewStoryletHandler(storyletSvc, storyletStore)
	orchestrateHandler := handlers.NewOrchestrateHandler(director, characterStore)

	r := chi.NewRouter()

	app := &App{
		Router:      r,
		Compression: compressionWorker,
		Director:    director,
		startTime:   time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Counters(&app.requestCount, &app.errorCount))
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/characters", func(r chi.Router) {
			r.Post("/", characterHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", characterHandler.GetByID)
				r.Post("/orchestrate", orchestrateHandler.Run)

				r.Get("/qualities", qualityHandler.List)
				r.Put("/qualities", qualityHandler.Set)

				r.Get("/graph", graphHandler.GetGraph)
				r.Get("/relationships", graphHandler.QueryRelationships)

				r.Get("/memory", memoryHandler.WorkingMemory)
				r.Get("/story", memoryHandler.Story)
				r.Get("/retrieve", memoryHandler.Retrieve)
				r.Post("/events", eventHandler.Append)

				r.Get("/storylets", storyletHandler.Available)
			})
		})

		r.Route("/storylets", func(r chi.Router) {
			r.Get("/", storyletHandler.List)
			r.Get("/{key}", storyletHandler.GetByKey)
		})

		r.Get("/orchestration/metrics", orchestrateHandler.Metrics)
	})

	return app
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"orchestration":  app.Director.Metrics().Snapshot(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.CharacterStore    = (*store.CharacterStore)(nil)
	_ domain.QualityStore      = (*store.QualityStore)(nil)
	_ domain.EntityStore       = (*store.EntityStore)(nil)
	_ domain.RelationshipStore = (*store.RelationshipStore)(nil)
	_ domain.EventStore        = (*store.EventStore)(nil)
	_ domain.EpisodeStore      = (*store.EpisodeStore)(nil)
	_ domain.SummaryStore      = (*store.SummaryStore)(nil)
	_ domain.StoryletStore     = (*store.StoryletStore)(nil)
	_ domain.EmbeddingClient   = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient   = (*embedding.MockClient)(nil)
	_ domain.LLMClient         = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient         = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient         = (*llm.MockClient)(nil)
	_ domain.EntityExtractor   = (*service.HeuristicExtractor)(nil)
)
