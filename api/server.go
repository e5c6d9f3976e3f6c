package api

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"od-flow-audit/analysis"
	"od-flow-audit/cache"
	"od-flow-audit/database"
	"od-flow-audit/realtime"
)

// Server handles HTTP API requests
type Server struct {
	results *database.ResultRepository
	cache   *cache.ResultCache
	broker  *realtime.Broker

	mu          sync.RWMutex
	latest      *analysis.Result
	windowStart string
	windowEnd   string
}

// NewServer creates a new API server instance
func NewServer(results *database.ResultRepository, resultCache *cache.ResultCache, broker *realtime.Broker) *Server {
	return &Server{
		results: results,
		cache:   resultCache,
		broker:  broker,
	}
}

// SetResult publishes a freshly computed run to the API
func (s *Server) SetResult(result *analysis.Result, windowStart, windowEnd string) {
	s.mu.Lock()
	s.latest = result
	s.windowStart = windowStart
	s.windowEnd = windowEnd
	s.mu.Unlock()
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Register routes
	mux.Handle("GET /api/events", s.broker) // SSE Endpoint
	mux.HandleFunc("GET /api/runs/latest", s.handleLatestRun)
	mux.HandleFunc("GET /api/facets/{facet}", s.handleFacet)
	mux.HandleFunc("GET /api/facets/{facet}/coverage", s.handleFacetCoverage)
	mux.HandleFunc("GET /api/facets/{facet}/cases", s.handleFacetCases)
	mux.HandleFunc("GET /api/transit", s.handleTransit)
	mux.HandleFunc("GET /api/labels", s.handleLabels)
	mux.HandleFunc("GET /api/labels/{gantry}/history", s.handleLabelHistory)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/anomalies", s.handleAnomalies)
	mux.HandleFunc("GET /api/stats/basic", s.handleBasicStats)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
