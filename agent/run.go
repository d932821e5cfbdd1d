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
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"github.com/Praharsh7270/Ai-Council/common/store"
	"github.com/Praharsh7270/Ai-Council/orchestrator"
	"github.com/Praharsh7270/Ai-Council/orchestrator/circuitbreaker"
	"github.com/Praharsh7270/Ai-Council/orchestrator/execmode"
	"github.com/Praharsh7270/Ai-Council/orchestrator/health"
	"github.com/Praharsh7270/Ai-Council/orchestrator/ratelimit"
	"github.com/Praharsh7270/Ai-Council/orchestrator/registry"
)

// AI Council Gateway - rate limiting, provider health, and adaptive
// routing surface. This service sits between clients and the model
// providers.

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_council_gateway_requests_total",
			Help: "Total number of requests processed by the gateway",
		},
		[]string{"status"},
	)
	promRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_council_gateway_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		},
	)
	promRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_council_gateway_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
	promCircuitTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_council_circuit_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"provider", "to"},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promRateLimitedTotal)
	prometheus.MustRegister(promCircuitTransitions)
}

// gatewayMetrics tracks in-process request statistics for the admin
// metrics summary.
type gatewayMetrics struct {
	mu sync.RWMutex

	totalRequests   int64
	failedRequests  int64
	blockedRequests int64

	// Last 1000 latencies for percentile calculation.
	latencies []int64

	startTime time.Time
}

func newGatewayMetrics() *gatewayMetrics {
	return &gatewayMetrics{startTime: time.Now()}
}

func (m *gatewayMetrics) record(status int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	if status >= 500 {
		m.failedRequests++
	}

	m.latencies = append(m.latencies, elapsed.Nanoseconds())
	if len(m.latencies) > 1000 {
		m.latencies = m.latencies[len(m.latencies)-1000:]
	}
}

func (m *gatewayMetrics) recordBlocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockedRequests++
}

func (m *gatewayMetrics) snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"total_requests":   m.totalRequests,
		"failed_requests":  m.failedRequests,
		"blocked_requests": m.blockedRequests,
		"p99_latency_ms":   percentile(m.latencies, 0.99) / 1e6,
		"uptime_seconds":   int64(time.Since(m.startTime).Seconds()),
	}
}

func percentile(latencies []int64, p float64) float64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)-1) * p)
	return float64(sorted[idx])
}

// Run assembles the routing core from the environment and serves the
// gateway until the process exits.
func Run() {
	port := getEnv("PORT", "8080")
	redisURL := getEnv("REDIS_URL", "redis://localhost:6379")

	if err := execmode.Validate(); err != nil {
		log.Fatalf("Execution mode presets invalid: %v", err)
	}

	s, err := store.NewRedisStore(redisURL)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}

	reg := registry.Default()
	if catalogPath := os.Getenv("MODEL_CATALOG"); catalogPath != "" {
		reg, err = registry.LoadCatalog(catalogPath)
		if err != nil {
			log.Fatalf("Model catalog load failed: %v", err)
		}
	}

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig(),
		circuitbreaker.WithStateChangeHook(func(provider string, from, to circuitbreaker.State) {
			promCircuitTransitions.WithLabelValues(provider, to.String()).Inc()
		}))

	limiter := ratelimit.New(s, ratelimit.DefaultLimits())
	checker := health.New(s, breaker)
	router := orchestrator.NewRouter(reg, breaker,
		orchestrator.WithHealth(checker),
		orchestrator.WithDeploymentMode(orchestrator.DeploymentMode(getEnv("DEPLOYMENT_MODE", "cloud"))))

	auth := NewAuthenticator([]byte(os.Getenv("JWT_SECRET")))
	gateway := NewGateway(auth, limiter, breaker, checker, router, reg)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := corsHandler.Handler(gateway.Routes())
	log.Printf("AI Council Gateway starting on port %s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
