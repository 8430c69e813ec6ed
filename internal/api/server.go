package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hs-platform/revintel/internal/auth"
	"github.com/hs-platform/revintel/internal/cache"
	"github.com/hs-platform/revintel/internal/calculator"
	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/eventbus"
	"github.com/hs-platform/revintel/internal/health"
	"github.com/hs-platform/revintel/internal/icp"
	"github.com/hs-platform/revintel/internal/metrics"
	"github.com/hs-platform/revintel/internal/orchestrator"
	"github.com/hs-platform/revintel/internal/ratelimit"
	"github.com/hs-platform/revintel/pkg/config"
	"github.com/hs-platform/revintel/pkg/models"
)

// Store is the persistence surface the handlers need. *database.Database
// satisfies it; tests use an in-memory fake.
type Store interface {
	Ping() error

	CreateSession(session *models.Session) error
	GetSession(id string) (*models.Session, error)
	ListSessions(customerID string) ([]*models.Session, error)
	UpdateSessionContext(id string, context map[string]string) error
	DeleteSession(id string) error

	SaveICPAnalysis(analysis *models.ICPAnalysis) error
	ListICPAnalyses(customerID string, limit int) ([]*models.ICPAnalysis, error)
	LatestICPAnalysis(customerID string) (*models.ICPAnalysis, error)
	UpsertResearchRecord(record *models.ResearchRecord) error
	ListResearchRecords(customerID string) ([]*models.ResearchRecord, error)

	SaveCostScenario(scenario *models.CostScenario) error
	ListCostScenarios(customerID string, limit int) ([]*models.CostScenario, error)

	ListExecutions(filter database.ExecutionFilter) ([]*models.AgentExecution, error)

	RecordMetric(metric *models.PerformanceMetric) error
	ListMetrics(filter database.MetricFilter) ([]*models.PerformanceMetric, error)
	LatestMetrics(customerID string) ([]*models.PerformanceMetric, error)
	ListOptimizationEvents(customerID string, status models.OptimizationStatus) ([]*models.OptimizationEvent, error)
	UpdateOptimizationStatus(id string, status models.OptimizationStatus) error

	UpsertResource(resource *models.Resource) error
	GetResource(id string) (*models.Resource, error)
	ListResources(maxTier int) ([]*models.Resource, error)
	DeleteResource(id string) error

	InsertRequestLog(entry *database.RequestLog) error
	GetRequestStats(since time.Time) (*database.RequestStats, error)
}

var _ Store = (*database.Database)(nil)

// Server is the HTTP API server.
type Server struct {
	store    Store
	auth     *auth.Manager
	cache    *cache.Cache
	limiter  ratelimit.Limiter
	orch     *orchestrator.Orchestrator
	analyzer *icp.Analyzer
	calc     *calculator.Calculator
	watchdog *health.Watchdog
	metrics  *metrics.Metrics
	config   *config.Config
	broker   *eventBroker
	bus      eventbus.Subscriber
}

// NewServer creates the API server and hooks the event broker onto the bus.
func NewServer(store Store, authMgr *auth.Manager, responseCache *cache.Cache, limiter ratelimit.Limiter,
	orch *orchestrator.Orchestrator, watchdog *health.Watchdog, bus eventbus.Subscriber, cfg *config.Config) *Server {

	if responseCache == nil {
		responseCache = cache.New(&cache.Config{Enabled: false})
	}
	s := &Server{
		store:    store,
		auth:     authMgr,
		cache:    responseCache,
		limiter:  limiter,
		orch:     orch,
		analyzer: icp.NewAnalyzer(),
		calc:     calculator.New(),
		watchdog: watchdog,
		metrics:  metrics.NewMetrics(),
		config:   cfg,
		broker:   newEventBroker(),
		bus:      bus,
	}
	if bus != nil {
		if err := bus.SubscribeEvents(s.broker.broadcast); err != nil {
			log.Printf("Failed to subscribe event broker: %v", err)
		}
	}
	return s
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Liveness, readiness, Prometheus
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("/readyz", s.handleReadiness)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	// Auth
	mux.HandleFunc("/api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/api/v1/auth/change-password", s.handleChangePassword)
	mux.HandleFunc("/api/v1/auth/keys", s.handleAPIKeys)
	mux.HandleFunc("/api/v1/auth/keys/", s.handleAPIKey)
	mux.HandleFunc("/api/v1/auth/users", s.handleUsers)

	// Sessions
	mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	mux.HandleFunc("/api/v1/sessions/", s.handleSession)

	// ICP analysis and research
	mux.HandleFunc("/api/v1/icp/analyze", s.handleICPAnalyze)
	mux.HandleFunc("/api/v1/icp/analyses", s.handleICPAnalyses)
	mux.HandleFunc("/api/v1/icp/latest", s.handleICPLatest)
	mux.HandleFunc("/api/v1/icp/research", s.handleResearch)
	mux.HandleFunc("/api/v1/icp/research/validate", s.handleResearchValidate)

	// Cost calculator
	mux.HandleFunc("/api/v1/calculator/cost", s.handleCalculatorCost)
	mux.HandleFunc("/api/v1/calculator/scenarios", s.handleCalculatorScenarios)

	// Agents
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agents/execute", s.handleAgentExecute)
	mux.HandleFunc("/api/v1/agents/executions", s.handleAgentExecutions)

	// Dashboard and metrics
	mux.HandleFunc("/api/v1/dashboard/", s.handleDashboard)
	mux.HandleFunc("/api/v1/performance", s.handlePerformanceMetrics)
	mux.HandleFunc("/api/v1/optimizations", s.handleOptimizations)
	mux.HandleFunc("/api/v1/optimizations/", s.handleOptimization)

	// Resource library
	mux.HandleFunc("/api/v1/resources", s.handleResources)
	mux.HandleFunc("/api/v1/resources/", s.handleResource)

	// Export
	mux.HandleFunc("/api/v1/export/metrics.csv", s.handleExportMetricsCSV)
	mux.HandleFunc("/api/v1/export/metrics.json", s.handleExportMetricsJSON)
	mux.HandleFunc("/api/v1/export/executions.csv", s.handleExportExecutionsCSV)
	mux.HandleFunc("/api/v1/export/executions.json", s.handleExportExecutionsJSON)

	// Events (real-time updates and history)
	mux.HandleFunc("/api/v1/events/stream", s.handleEventStream)
	mux.HandleFunc("/api/v1/events", s.handleEventHistory)

	// Apply middleware
	handler := s.rateLimitMiddleware(mux)
	handler = s.authMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)

	return handler
}

// handleLiveness reports that the process is up.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness reports whether dependencies passed the last health sweep.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.watchdog == nil || !s.watchdog.Ready() {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleHealth returns the full dependency snapshot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewValidationError("method not allowed"))
		return
	}
	if s.watchdog == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	snap := s.watchdog.Snapshot()
	status := http.StatusOK
	if !snap.Healthy {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, snap)
}

// Middleware

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// loggingMiddleware logs requests, records them for analytics, and feeds
// the Prometheus counters.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The SSE stream holds the connection open, skip its bookkeeping.
		if r.URL.Path == "/api/v1/events/stream" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		elapsed := time.Since(start)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, recorder.status, elapsed)

		path := normalizePath(r.URL.Path)
		s.metrics.RecordHTTPRequest(r.Method, path, http.StatusText(recorder.status), elapsed.Seconds())

		entry := &database.RequestLog{
			Timestamp:  start,
			UserID:     auth.GetUserIDFromRequest(r),
			Endpoint:   path,
			Method:     r.Method,
			StatusCode: recorder.status,
			LatencyMs:  int(elapsed.Milliseconds()),
			IPAddress:  r.RemoteAddr,
		}
		if err := s.store.InsertRequestLog(entry); err != nil {
			log.Printf("Failed to record request log: %v", err)
		}
	})
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.config.Security.AllowedOrigins) > 0 {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.config.Security.AllowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer token or API key and attaches the
// resulting claims to the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) || !s.config.Security.EnableAuth {
			next.ServeHTTP(w, r)
			return
		}

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			userID, permissions, err := s.auth.ValidateAPIKey(apiKey)
			if err != nil {
				writeError(w, NewAuthError("invalid API key"))
				return
			}
			claims := &auth.Claims{UserID: userID, Permissions: permissions}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, NewAuthError("missing credentials"))
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			writeError(w, NewAuthError("authorization header must use Bearer scheme"))
			return
		}

		claims, err := s.auth.ValidateToken(token)
		if err != nil {
			writeError(w, NewAuthError("invalid or expired token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// rateLimitMiddleware throttles per caller. The limiter fails open so an
// unavailable Redis never blocks traffic.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := auth.GetUserIDFromRequest(r)
		if key == "" {
			key = r.Header.Get("X-API-Key")
		}
		if key == "" {
			key = remoteIP(r)
		}

		allowed, retryAfter, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			log.Printf("Rate limiter error for %s: %v", key, err)
		}
		if !allowed {
			s.metrics.RateLimitRejections.WithLabelValues(normalizePath(r.URL.Path)).Inc()
			writeError(w, NewRateLimitError(retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isPublicPath reports whether the path skips auth and rate limiting.
func isPublicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/api/v1/health", "/api/v1/auth/login", "/api/v1/events/stream":
		return true
	}
	return false
}

// remoteIP strips the port from RemoteAddr.
func remoteIP(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx > 0 {
		return addr[:idx]
	}
	return addr
}

// literalSegments are sub-route names that are not identifiers.
var literalSegments = map[string]bool{
	"analyze": true, "analyses": true, "latest": true, "research": true,
	"validate": true, "cost": true, "scenarios": true, "execute": true,
	"executions": true, "login": true, "change-password": true, "keys": true,
	"users": true, "stream": true, "status": true, "metrics.csv": true,
	"metrics.json": true, "executions.csv": true, "executions.json": true,
}

// normalizePath collapses identifier segments so metric label cardinality
// stays bounded.
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 3; i < len(parts); i++ {
		if !literalSegments[parts[i]] {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

// Helper functions

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseJSON parses JSON request body
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// extractID extracts the first path segment after the prefix.
func (s *Server) extractID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")

	parts := strings.Split(id, "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return id
}
