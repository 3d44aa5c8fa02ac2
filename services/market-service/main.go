package main

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Divas-Gupta30/agentic-rag/internal/config"
)

type quote struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Change    string `json:"change"`
	Volume    int    `json:"volume"`
	Timestamp string `json:"timestamp"`
	Cached    bool   `json:"cached"`
}

// Prometheus metrics
var (
	quoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"status"},
	)
	quoteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_quote_duration_seconds",
			Help:    "Duration of quote requests",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(quoteRequestsTotal)
	prometheus.MustRegister(quoteDuration)
}

type server struct {
	redis    *redis.Client
	cacheTTL time.Duration
}

func main() {
	cfg := config.Load()
	port := os.Getenv("MARKET_SERVICE_PORT")
	if port == "" {
		port = "8083"
	}

	srv := &server{cacheTTL: 30 * time.Second}
	if cfg.RedisURL != "" {
		srv.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
		})
		defer srv.redis.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := srv.redis.Ping(ctx).Result(); err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
		} else {
			log.Println("Connected to Redis cache")
		}
		cancel()
	}

	router := mux.NewRouter()
	router.HandleFunc("/quote", srv.handleQuote).Methods("GET")
	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Market Service starting on port %s", port)
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

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		quoteDuration.Observe(time.Since(start).Seconds())
	}()

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" || len(symbol) > 5 {
		quoteRequestsTotal.WithLabelValues("error").Inc()
		http.Error(w, "symbol query parameter is required (1-5 characters)", http.StatusBadRequest)
		return
	}

	if cached, ok := s.cachedQuote(r.Context(), symbol); ok {
		cached.Cached = true
		quoteRequestsTotal.WithLabelValues("success").Inc()
		writeJSON(w, cached)
		return
	}

	q := mockQuote(symbol)
	s.cacheQuote(r.Context(), symbol, q)

	quoteRequestsTotal.WithLabelValues("success").Inc()
	writeJSON(w, q)
}

// mockQuote derives a stable price from the symbol so repeated
// requests for the same ticker agree with each other.
func mockQuote(symbol string) quote {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()

	price := 20.0 + float64(seed%98000)/100.0
	change := float64(int32(seed>>8)%500) / 100.0

	sign := "+"
	if change < 0 {
		sign = ""
	}
	return quote{
		Symbol:    symbol,
		Price:     fmt.Sprintf("$%.2f", price),
		Change:    fmt.Sprintf("%s%.2f%%", sign, change),
		Volume:    int(seed%9000000) + 1000000,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *server) cachedQuote(ctx context.Context, symbol string) (quote, bool) {
	if s.redis == nil {
		return quote{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := s.redis.Get(ctx, "quote:"+symbol).Result()
	if err != nil {
		return quote{}, false
	}
	var q quote
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return quote{}, false
	}
	return q, true
}

func (s *server) cacheQuote(ctx context.Context, symbol string, q quote) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, "quote:"+symbol, data, s.cacheTTL).Err(); err != nil {
		log.Printf("Warning: failed to cache quote: %v", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy", "service": "market-service"})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
