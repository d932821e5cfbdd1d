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

// Package health probes provider liveness endpoints, folds in circuit
// breaker state, and caches the verdicts in the shared store. Health
// status is derived, never authoritative: it is always recomputable from
// a live probe plus the current circuit phase.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Praharsh7270/Ai-Council/common/store"
	"github.com/Praharsh7270/Ai-Council/orchestrator/circuitbreaker"
)

// Status is a provider health verdict.
type Status string

const (
	// StatusHealthy means the provider answered its liveness probe.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the provider responds but with issues, or its
	// circuit is half-open.
	StatusDegraded Status = "degraded"

	// StatusDown means the provider is unreachable, erroring, or its
	// circuit is open.
	StatusDown Status = "down"
)

// ProviderHealth is the cached health verdict for one provider.
type ProviderHealth struct {
	Status      Status        `json:"status"`
	LastChecked time.Time     `json:"last_checked"`
	Latency     time.Duration `json:"latency"`
	Message     string        `json:"message,omitempty"`
}

// Prober issues a liveness probe against a provider endpoint and returns
// the HTTP-like status code.
type Prober interface {
	Probe(ctx context.Context, url string) (statusCode int, err error)
}

// HTTPProber probes endpoints with plain GET requests.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates a prober with the given per-probe timeout.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: timeout}}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// DefaultEndpoints maps provider keys to lightweight liveness endpoints.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		"groq":        "https://api.groq.com/openai/v1/models",
		"together":    "https://api.together.xyz/v1/models",
		"openrouter":  "https://openrouter.ai/api/v1/models",
		"huggingface": "https://huggingface.co/api/models",
	}
}

const (
	// cacheTTL bounds how stale a cached verdict may be.
	cacheTTL = 60 * time.Second

	// probeTimeout bounds a single liveness probe.
	probeTimeout = 5 * time.Second
)

// Checker performs cached, breaker-aware provider health checks.
type Checker struct {
	store     store.Store
	breaker   *circuitbreaker.CircuitBreaker
	prober    Prober
	endpoints map[string]string
	logger    *log.Logger
}

// Option configures the Checker during creation.
type Option func(*Checker)

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithProber overrides the probe transport. Used by tests.
func WithProber(p Prober) Option {
	return func(c *Checker) {
		c.prober = p
	}
}

// WithEndpoints overrides the provider endpoint table.
func WithEndpoints(endpoints map[string]string) Option {
	return func(c *Checker) {
		c.endpoints = endpoints
	}
}

// New creates a Checker over the shared store and circuit breaker.
func New(s store.Store, breaker *circuitbreaker.CircuitBreaker, opts ...Option) *Checker {
	c := &Checker{
		store:     s,
		breaker:   breaker,
		prober:    NewHTTPProber(probeTimeout),
		endpoints: DefaultEndpoints(),
		logger:    log.New(os.Stdout, "[PROVIDER_HEALTH] ", log.LstdFlags),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Providers returns the providers this checker knows endpoints for.
func (c *Checker) Providers() []string {
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	return names
}

func cacheKey(provider string) string {
	return "provider:health:" + provider
}

// probe runs the liveness probe and classifies the raw outcome.
func (c *Checker) probe(ctx context.Context, provider, url string) ProviderHealth {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	code, err := c.prober.Probe(probeCtx, url)
	latency := time.Since(start)

	if err != nil {
		c.logger.Printf("Probe failed for %s: %v", provider, err)
		return ProviderHealth{
			Status:      StatusDown,
			LastChecked: time.Now().UTC(),
			Latency:     latency,
			Message:     err.Error(),
		}
	}

	switch {
	case code == http.StatusOK:
		return ProviderHealth{
			Status:      StatusHealthy,
			LastChecked: time.Now().UTC(),
			Latency:     latency,
		}
	case code > http.StatusOK && code < http.StatusInternalServerError:
		return ProviderHealth{
			Status:      StatusDegraded,
			LastChecked: time.Now().UTC(),
			Latency:     latency,
			Message:     fmt.Sprintf("HTTP %d", code),
		}
	default:
		return ProviderHealth{
			Status:      StatusDown,
			LastChecked: time.Now().UTC(),
			Latency:     latency,
			Message:     fmt.Sprintf("HTTP %d", code),
		}
	}
}

// foldCircuitState overlays the provider's circuit phase on the probe
// verdict: an open circuit forces down, a half-open circuit downgrades
// healthy to degraded.
func (c *Checker) foldCircuitState(provider string, h ProviderHealth) ProviderHealth {
	switch c.breaker.GetState(provider) {
	case circuitbreaker.StateOpen:
		h.Status = StatusDown
		if h.Message == "" {
			h.Message = "circuit breaker open"
		}
	case circuitbreaker.StateHalfOpen:
		if h.Status == StatusHealthy {
			h.Status = StatusDegraded
		}
	}
	return h
}

// CheckProvider returns the provider's health verdict, serving from the
// 60s cache when possible. Cache errors are logged and treated as misses;
// they never fail the check.
func (c *Checker) CheckProvider(ctx context.Context, provider string) ProviderHealth {
	key := cacheKey(provider)

	if raw, found, err := c.store.Get(ctx, key); err != nil {
		c.logger.Printf("Error reading health cache for %s: %v", provider, err)
	} else if found {
		var cached ProviderHealth
		if err := json.Unmarshal([]byte(raw), &cached); err != nil {
			c.logger.Printf("Corrupt health cache entry for %s: %v", provider, err)
		} else {
			return cached
		}
	}

	url, ok := c.endpoints[provider]
	if !ok {
		return ProviderHealth{
			Status:      StatusDown,
			LastChecked: time.Now().UTC(),
			Message:     fmt.Sprintf("unknown provider: %s", provider),
		}
	}

	result := c.foldCircuitState(provider, c.probe(ctx, provider, url))

	if data, err := json.Marshal(result); err != nil {
		c.logger.Printf("Error encoding health status for %s: %v", provider, err)
	} else if err := c.store.Set(ctx, key, string(data), cacheTTL); err != nil {
		c.logger.Printf("Error caching health status for %s: %v", provider, err)
	}

	return result
}

// CheckAll checks every known provider concurrently and returns one entry
// per provider. A failing or panicking check degrades only its own entry
// to a synthetic down; it never suppresses the others.
func (c *Checker) CheckAll(ctx context.Context) map[string]ProviderHealth {
	providers := c.Providers()

	results := make(map[string]ProviderHealth, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, provider := range providers {
		wg.Add(1)
		go func(provider string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Printf("Health check panic for %s: %v", provider, r)
					mu.Lock()
					results[provider] = ProviderHealth{
						Status:      StatusDown,
						LastChecked: time.Now().UTC(),
						Message:     fmt.Sprintf("health check failed: %v", r),
					}
					mu.Unlock()
				}
			}()

			result := c.CheckProvider(ctx, provider)

			mu.Lock()
			results[provider] = result
			mu.Unlock()
		}(provider)
	}

	wg.Wait()
	return results
}

// InvalidateCache drops the cached verdict for a provider, forcing the
// next check to probe live. Used after administrative circuit resets.
func (c *Checker) InvalidateCache(ctx context.Context, provider string) error {
	if err := c.store.Delete(ctx, cacheKey(provider)); err != nil {
		return fmt.Errorf("invalidate health cache for %q: %w", provider, err)
	}
	return nil
}
