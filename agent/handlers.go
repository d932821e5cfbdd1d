// Copyright 2025 AI Council
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Praharsh7270/Ai-Council/orchestrator"
	"github.com/Praharsh7270/Ai-Council/orchestrator/circuitbreaker"
	"github.com/Praharsh7270/Ai-Council/orchestrator/execmode"
	"github.com/Praharsh7270/Ai-Council/orchestrator/health"
	"github.com/Praharsh7270/Ai-Council/orchestrator/ratelimit"
	"github.com/Praharsh7270/Ai-Council/orchestrator/registry"
)

// Gateway is the HTTP surface over the routing core: rate-limited routing
// requests for callers, health and circuit administration for operators.
type Gateway struct {
	auth     *Authenticator
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.CircuitBreaker
	checker  *health.Checker
	router   *orchestrator.Router
	registry *registry.Registry
	logger   *log.Logger
	metrics  *gatewayMetrics
}

// GatewayOption configures the Gateway during creation.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets a custom logger.
func WithGatewayLogger(logger *log.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway wires the HTTP surface over an assembled routing core.
func NewGateway(
	auth *Authenticator,
	limiter *ratelimit.Limiter,
	breaker *circuitbreaker.CircuitBreaker,
	checker *health.Checker,
	router *orchestrator.Router,
	reg *registry.Registry,
	opts ...GatewayOption,
) *Gateway {
	g := &Gateway{
		auth:     auth,
		limiter:  limiter,
		breaker:  breaker,
		checker:  checker,
		router:   router,
		registry: reg,
		logger:   log.New(os.Stdout, "[GATEWAY] ", log.LstdFlags),
		metrics:  newGatewayMetrics(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Routes builds the gateway's route table.
func (g *Gateway) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(requestIDMiddleware))
	r.Use(mux.MiddlewareFunc(g.metricsMiddleware))

	r.HandleFunc("/health", g.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(mux.MiddlewareFunc(g.rateLimitMiddleware))
	api.HandleFunc("/route", g.routeHandler).Methods("POST")
	api.HandleFunc("/modes", g.modesHandler).Methods("GET")
	api.HandleFunc("/models", g.modelsHandler).Methods("GET")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/providers/health", g.requireAdmin(g.providersHealthHandler)).Methods("GET")
	admin.HandleFunc("/providers/{provider}/circuit", g.requireAdmin(g.circuitStatsHandler)).Methods("GET")
	admin.HandleFunc("/providers/{provider}/circuit/reset", g.requireAdmin(g.circuitResetHandler)).Methods("POST")
	admin.HandleFunc("/ratelimit/{identifier}", g.requireAdmin(g.usageHandler)).Methods("GET")
	admin.HandleFunc("/ratelimit/{identifier}/reset", g.requireAdmin(g.limitResetHandler)).Methods("POST")
	admin.HandleFunc("/metrics/summary", g.requireAdmin(g.metricsSummaryHandler)).Methods("GET")

	return r
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "ai-council-gateway",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// RouteRequest is the body of POST /api/route.
type RouteRequest struct {
	Capability string `json:"capability"`
	Mode       string `json:"mode"`
}

// RouteResponse is the answer to POST /api/route.
type RouteResponse struct {
	Model      registry.Model   `json:"model"`
	Alternates []registry.Model `json:"alternates"`
	Mode       execmode.Mode    `json:"mode"`
	MaxRetries int              `json:"max_retries"`
	TimeoutMS  int64            `json:"timeout_ms"`
	RequestID  string           `json:"request_id,omitempty"`
}

func (g *Gateway) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Capability == "" {
		sendErrorResponse(w, "capability is required", http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		req.Mode = string(execmode.ModeBalanced)
	}

	decision, err := g.router.Route(r.Context(), registry.Capability(req.Capability), execmode.Mode(req.Mode))
	if err != nil {
		g.routeError(w, r, err)
		return
	}

	requestID, _ := RequestIDFromContext(r.Context())
	alternates := decision.Alternates
	if alternates == nil {
		alternates = []registry.Model{}
	}
	writeJSON(w, http.StatusOK, RouteResponse{
		Model:      decision.Model,
		Alternates: alternates,
		Mode:       decision.Mode,
		MaxRetries: decision.MaxRetries,
		TimeoutMS:  decision.Timeout.Milliseconds(),
		RequestID:  requestID,
	})
}

// routeError maps routing failures onto the HTTP surface: unknown inputs
// are client errors, exhausted providers are 503.
func (g *Gateway) routeError(w http.ResponseWriter, r *http.Request, err error) {
	var unknownMode *execmode.UnknownModeError
	var noCandidates *registry.NoCandidatesError
	var noRoute *orchestrator.NoRouteError

	switch {
	case errors.As(err, &unknownMode):
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &noCandidates):
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &noRoute):
		g.logger.Printf("Route failed: %v", err)
		sendErrorResponse(w, "No provider currently available for this capability", http.StatusServiceUnavailable)
	default:
		g.logger.Printf("Route error: %v", err)
		sendErrorResponse(w, "Internal routing error", http.StatusInternalServerError)
	}
}

func (g *Gateway) modesHandler(w http.ResponseWriter, r *http.Request) {
	type modeInfo struct {
		Mode        execmode.Mode `json:"mode"`
		Description string        `json:"description"`
		UseCase     string        `json:"use_case"`
	}

	var modes []modeInfo
	for _, mode := range execmode.Modes() {
		summary, err := execmode.Describe(mode)
		if err != nil {
			continue
		}
		modes = append(modes, modeInfo{Mode: mode, Description: summary.Description, UseCase: summary.UseCase})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modes": modes})
}

func (g *Gateway) modelsHandler(w http.ResponseWriter, r *http.Request) {
	capability := r.URL.Query().Get("capability")

	var ids []string
	if capability == "" {
		ids = g.registry.IDs()
	} else {
		var err error
		ids, err = g.registry.ModelsForCapability(registry.Capability(capability))
		if err != nil {
			var noCandidates *registry.NoCandidatesError
			if errors.As(err, &noCandidates) {
				writeJSON(w, http.StatusOK, map[string]interface{}{"models": []registry.Model{}})
				return
			}
			sendErrorResponse(w, "Internal error", http.StatusInternalServerError)
			return
		}
	}

	models := make([]registry.Model, 0, len(ids))
	for _, id := range ids {
		if m, err := g.registry.Get(id); err == nil {
			models = append(models, m)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

func (g *Gateway) providersHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": g.checker.CheckAll(r.Context()),
		"timestamp": time.Now().UTC(),
	})
}

func (g *Gateway) circuitStatsHandler(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	writeJSON(w, http.StatusOK, g.breaker.Stats(provider))
}

func (g *Gateway) circuitResetHandler(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]

	g.breaker.Reset(provider)
	if err := g.checker.InvalidateCache(r.Context(), provider); err != nil {
		g.logger.Printf("Health cache invalidation failed for %s: %v", provider, err)
	}

	g.logger.Printf("Circuit reset for provider %s", provider)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": provider,
		"state":    g.breaker.GetState(provider).String(),
	})
}

func (g *Gateway) usageHandler(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]
	isDemo := r.URL.Query().Get("demo") == "true"

	count, resetAt, err := g.limiter.CurrentUsage(r.Context(), identifier, isDemo)
	if err != nil {
		g.logger.Printf("Usage lookup failed for %s: %v", identifier, err)
		sendErrorResponse(w, "Usage lookup failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"identifier": identifier,
		"used":       count,
		"reset_at":   resetAt.UTC(),
	})
}

func (g *Gateway) limitResetHandler(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]
	isDemo := r.URL.Query().Get("demo") == "true"

	if err := g.limiter.ResetLimit(r.Context(), identifier, isDemo); err != nil {
		g.logger.Printf("Rate limit reset failed for %s: %v", identifier, err)
		sendErrorResponse(w, "Rate limit reset failed", http.StatusInternalServerError)
		return
	}

	g.logger.Printf("Rate limit reset for %s", identifier)
	writeJSON(w, http.StatusOK, map[string]interface{}{"identifier": identifier, "reset": true})
}

func (g *Gateway) metricsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.metrics.snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]interface{}{
		"error":   http.StatusText(statusCode),
		"message": message,
	})
}
