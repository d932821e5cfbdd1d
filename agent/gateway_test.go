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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Praharsh7270/Ai-Council/common/store"
	"github.com/Praharsh7270/Ai-Council/orchestrator"
	"github.com/Praharsh7270/Ai-Council/orchestrator/circuitbreaker"
	"github.com/Praharsh7270/Ai-Council/orchestrator/health"
	"github.com/Praharsh7270/Ai-Council/orchestrator/ratelimit"
	"github.com/Praharsh7270/Ai-Council/orchestrator/registry"
)

type okProber struct{}

func (okProber) Probe(context.Context, string) (int, error) { return 200, nil }

func newTestGateway(t *testing.T) (*Gateway, *miniredis.Miniredis, *circuitbreaker.CircuitBreaker) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := store.NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}

	discard := log.New(io.Discard, "", 0)

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig(),
		circuitbreaker.WithLogger(discard))
	limiter := ratelimit.New(s,
		ratelimit.Limits{Authenticated: 5, Demo: 2, Admin: 100},
		ratelimit.WithLogger(discard))
	checker := health.New(s, breaker,
		health.WithProber(okProber{}),
		health.WithEndpoints(map[string]string{"groq": "https://groq.test/models"}),
		health.WithLogger(discard))
	router := orchestrator.NewRouter(registry.Default(), breaker,
		orchestrator.WithRouterLogger(discard))

	gateway := NewGateway(NewAuthenticator([]byte(testSecret)),
		limiter, breaker, checker, router, registry.Default(),
		WithGatewayLogger(discard))

	return gateway, mr, breaker
}

func authHeader(t *testing.T, role string) string {
	t.Helper()
	return "Bearer " + signToken(t, jwt.MapClaims{"sub": "user-1", "role": role})
}

func TestHealthEndpoint(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestRouteEndpoint(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	payload, _ := json.Marshal(RouteRequest{Capability: "reasoning", Mode: "balanced"})
	req := httptest.NewRequest("POST", "/api/route", bytes.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, "member"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp RouteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Model.ID != "groq-llama3-70b" {
		t.Errorf("model = %q, want groq-llama3-70b", resp.Model.ID)
	}
	if resp.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want 3", resp.MaxRetries)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("X-RateLimit-Remaining header missing")
	}
}

func TestRouteEndpointUnknownMode(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	payload, _ := json.Marshal(RouteRequest{Capability: "reasoning", Mode: "turbo"})
	req := httptest.NewRequest("POST", "/api/route", bytes.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, "member"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRouteEndpointAllProvidersDown(t *testing.T) {
	gateway, _, breaker := newTestGateway(t)

	for _, provider := range []string{"groq", "together", "openrouter", "huggingface"} {
		for i := 0; i < 5; i++ {
			breaker.RecordFailure(provider)
		}
	}

	payload, _ := json.Marshal(RouteRequest{Capability: "reasoning", Mode: "balanced"})
	req := httptest.NewRequest("POST", "/api/route", bytes.NewReader(payload))
	req.Header.Set("Authorization", authHeader(t, "member"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDemoRateLimitEnforced(t *testing.T) {
	gateway, _, _ := newTestGateway(t)
	routes := gateway.Routes()

	// Demo tier allows 2 per hour in this fixture.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/modes", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/modes", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimitFailsOpenOnStoreOutage(t *testing.T) {
	gateway, mr, _ := newTestGateway(t)
	mr.Close()

	req := httptest.NewRequest("GET", "/api/modes", nil)
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (limiter outage must not reject traffic)", rec.Code)
	}
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	gateway, _, _ := newTestGateway(t)
	routes := gateway.Routes()

	paths := []struct {
		method, path string
	}{
		{"GET", "/admin/providers/health"},
		{"GET", "/admin/providers/groq/circuit"},
		{"POST", "/admin/providers/groq/circuit/reset"},
		{"GET", "/admin/ratelimit/user-1"},
		{"POST", "/admin/ratelimit/user-1/reset"},
	}

	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		req.Header.Set("Authorization", authHeader(t, "member"))
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want 403", p.method, p.path, rec.Code)
		}
	}
}

func TestCircuitResetEndpoint(t *testing.T) {
	gateway, _, breaker := newTestGateway(t)
	routes := gateway.Routes()

	for i := 0; i < 5; i++ {
		breaker.RecordFailure("groq")
	}
	if breaker.GetState("groq") != circuitbreaker.StateOpen {
		t.Fatal("expected open circuit")
	}

	req := httptest.NewRequest("POST", "/admin/providers/groq/circuit/reset", nil)
	req.Header.Set("Authorization", authHeader(t, "admin"))
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if breaker.GetState("groq") != circuitbreaker.StateClosed {
		t.Error("circuit should be closed after reset")
	}
}

func TestCircuitStatsEndpoint(t *testing.T) {
	gateway, _, breaker := newTestGateway(t)

	breaker.RecordFailure("groq")

	req := httptest.NewRequest("GET", "/admin/providers/groq/circuit", nil)
	req.Header.Set("Authorization", authHeader(t, "admin"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats circuitbreaker.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.FailureCount != 1 {
		t.Errorf("failure_count = %d, want 1", stats.FailureCount)
	}
}

func TestProvidersHealthEndpoint(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	req := httptest.NewRequest("GET", "/admin/providers/health", nil)
	req.Header.Set("Authorization", authHeader(t, "admin"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Providers map[string]health.ProviderHealth `json:"providers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := body.Providers["groq"].Status; got != health.StatusHealthy {
		t.Errorf("groq status = %q, want healthy", got)
	}
}

func TestRateLimitResetEndpoint(t *testing.T) {
	gateway, _, _ := newTestGateway(t)
	routes := gateway.Routes()

	// Exhaust the demo quota, then reset it via the admin endpoint.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/modes", nil)
		req.RemoteAddr = "203.0.113.9:1000"
		routes.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest("POST", "/admin/ratelimit/203.0.113.9/reset?demo=true", nil)
	req.Header.Set("Authorization", authHeader(t, "admin"))
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/modes", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status after reset = %d, want 200", rec.Code)
	}
}

func TestModelsEndpointFiltersByCapability(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	req := httptest.NewRequest("GET", "/api/models?capability=fact_checking", nil)
	req.Header.Set("Authorization", authHeader(t, "member"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Models []registry.Model `json:"models"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Models) != 1 || body.Models[0].ID != "openrouter-claude-3-sonnet" {
		t.Errorf("models = %v, want only openrouter-claude-3-sonnet", body.Models)
	}
}

func TestModesEndpoint(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	req := httptest.NewRequest("GET", "/api/modes", nil)
	req.Header.Set("Authorization", authHeader(t, "member"))
	rec := httptest.NewRecorder()
	gateway.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Modes []struct {
			Mode string `json:"mode"`
		} `json:"modes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Modes) != 3 {
		t.Errorf("modes = %d, want 3", len(body.Modes))
	}
}
