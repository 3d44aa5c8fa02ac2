package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Divas-Gupta30/agentic-rag/internal/config"
	"github.com/Divas-Gupta30/agentic-rag/internal/history"
	"github.com/Divas-Gupta30/agentic-rag/internal/lightrag"
	"github.com/Divas-Gupta30/agentic-rag/internal/llm"
	"github.com/Divas-Gupta30/agentic-rag/internal/tools"
	"github.com/Divas-Gupta30/agentic-rag/internal/websearch"
	"github.com/Divas-Gupta30/agentic-rag/internal/workflow"
)

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	workflow.FinalResponse
	Cached bool `json:"cached"`
}

// Prometheus metrics
var (
	queryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_query_requests_total",
			Help: "Total number of workflow query requests",
		},
		[]string{"status"},
	)
	queryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_query_duration_seconds",
			Help:    "Duration of workflow query requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
	workflowRetries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agent_workflow_retries",
			Help:    "Retries used per workflow run",
			Buckets: []float64{0, 1, 2, 3, 4},
		},
	)
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_cache_hits_total",
			Help: "Total number of answer cache hits",
		},
	)
	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_cache_misses_total",
			Help: "Total number of answer cache misses",
		},
	)
)

func init() {
	prometheus.MustRegister(queryRequestsTotal)
	prometheus.MustRegister(queryDuration)
	prometheus.MustRegister(workflowRetries)
	prometheus.MustRegister(cacheHitsTotal)
	prometheus.MustRegister(cacheMissesTotal)
}

type server struct {
	engine   *workflow.Engine
	rag      *lightrag.Client
	redis    *redis.Client
	store    *history.Store
	cacheTTL time.Duration
}

func main() {
	cfg := config.Load()

	deps := workflow.Deps{
		LLM:       llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.Temperature),
		Retriever: lightrag.New(cfg.LightRAGURL),
		Tools:     tools.NewInvoker(cfg.WeatherServiceURL, cfg.MarketServiceURL),
	}
	if cfg.TavilyAPIKey != "" {
		deps.Searcher = websearch.NewTavily(cfg.TavilyAPIKey)
	}

	srv := &server{
		engine: workflow.New(workflow.Config{
			MaxRetries:          cfg.MaxRetries,
			AcceptanceThreshold: cfg.AcceptanceThreshold,
		}, deps),
		rag:      lightrag.New(cfg.LightRAGURL),
		redis:    initRedis(cfg),
		cacheTTL: 10 * time.Minute,
	}
	if srv.redis != nil {
		defer srv.redis.Close()
	}

	if cfg.DatabaseURL != "" {
		store, err := history.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: run history disabled: %v", err)
		} else {
			srv.store = store
			defer store.Close()
		}
	}

	router := mux.NewRouter()
	router.HandleFunc("/query", srv.handleQuery).Methods("POST")
	router.HandleFunc("/history", srv.handleHistory).Methods("GET")
	router.HandleFunc("/health", srv.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Agent Service starting on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

func initRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		log.Println("Redis not configured; answer caching disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Agent service will work without caching")
		return client
	}
	log.Println("Connected to Redis cache")
	return client
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		queryDuration.Observe(time.Since(start).Seconds())
	}()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		queryRequestsTotal.WithLabelValues("error").Inc()
		http.Error(w, "JSON body with a non-empty query field is required", http.StatusBadRequest)
		return
	}

	if cached, ok := s.cachedAnswer(r.Context(), req.Query); ok {
		cacheHitsTotal.Inc()
		queryRequestsTotal.WithLabelValues("success").Inc()
		writeJSON(w, queryResponse{FinalResponse: cached, Cached: true})
		return
	}
	cacheMissesTotal.Inc()

	resp := s.engine.Run(r.Context(), req.Query)
	workflowRetries.Observe(float64(resp.Retries))

	completed, _ := resp.Metadata["workflow_completed"].(bool)
	status := "degraded"
	if completed {
		s.cacheAnswer(r.Context(), req.Query, resp)
		status = "success"
	}
	s.recordRun(req.Query, resp, completed)

	queryRequestsTotal.WithLabelValues(status).Inc()
	writeJSON(w, queryResponse{FinalResponse: resp, Cached: false})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run history not configured", http.StatusServiceUnavailable)
		return
	}
	runs, err := s.store.Recent(r.Context(), 50)
	if err != nil {
		http.Error(w, "failed to load history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"redis":     "disconnected",
		"retrieval": "unavailable",
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := s.redis.Ping(ctx).Result(); err == nil {
			health["redis"] = "connected"
		}
	}

	if status, err := s.rag.CheckStatus(r.Context()); err == nil && status.Available {
		health["retrieval"] = "available"
		health["knowledge_base"] = status
	}

	writeJSON(w, health)
}

func (s *server) cachedAnswer(ctx context.Context, query string) (workflow.FinalResponse, bool) {
	if s.redis == nil {
		return workflow.FinalResponse{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := s.redis.Get(ctx, cacheKey(query)).Result()
	if err != nil {
		return workflow.FinalResponse{}, false
	}
	var resp workflow.FinalResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return workflow.FinalResponse{}, false
	}
	return resp, true
}

func (s *server) cacheAnswer(ctx context.Context, query string, resp workflow.FinalResponse) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(query), data, s.cacheTTL).Err(); err != nil {
		log.Printf("Warning: failed to cache answer: %v", err)
	}
}

func (s *server) recordRun(query string, resp workflow.FinalResponse, completed bool) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.store.Record(ctx, history.Run{
		ID:         uuid.NewString(),
		Query:      query,
		Answer:     resp.Answer,
		Confidence: resp.Confidence,
		Retries:    resp.Retries,
		Completed:  completed,
	})
	if err != nil {
		log.Printf("Warning: failed to record run: %v", err)
	}
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return "answer:" + hex.EncodeToString(sum[:8])
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
