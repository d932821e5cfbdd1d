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

package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/Praharsh7270/Ai-Council/orchestrator/circuitbreaker"
	"github.com/Praharsh7270/Ai-Council/orchestrator/execmode"
	"github.com/Praharsh7270/Ai-Council/orchestrator/health"
	"github.com/Praharsh7270/Ai-Council/orchestrator/registry"
)

// DeploymentMode controls which half of the catalog the router may use.
type DeploymentMode string

const (
	// DeploymentCloud routes to hosted providers only.
	DeploymentCloud DeploymentMode = "cloud"

	// DeploymentLocal routes to locally hosted models only.
	DeploymentLocal DeploymentMode = "local"

	// DeploymentHybrid routes to the full catalog.
	DeploymentHybrid DeploymentMode = "hybrid"
)

// NoRouteError reports that every candidate for a capability was skipped,
// either because no provider circuit admits traffic or because the mode's
// deployment filter left nothing. It unwraps to ErrCircuitOpen so callers
// can branch on the taxonomy without inspecting the message.
type NoRouteError struct {
	Capability registry.Capability
	Mode       execmode.Mode
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no routable model for capability %q in mode %q", e.Capability, e.Mode)
}

func (e *NoRouteError) Unwrap() error {
	return circuitbreaker.ErrCircuitOpen
}

// HealthSource supplies cached provider health verdicts. Satisfied by
// *health.Checker.
type HealthSource interface {
	CheckProvider(ctx context.Context, provider string) health.ProviderHealth
}

// RouteDecision is the router's answer for one request: the model to try
// first, the ordered alternates for the caller's retry loop, and the
// execution budget inherited from the mode.
type RouteDecision struct {
	Model      registry.Model
	Alternates []registry.Model
	Mode       execmode.Mode
	MaxRetries int
	Timeout    time.Duration
}

// Router ranks catalog models for a capability and execution mode, skipping
// providers whose circuit is open and demoting providers cached as down.
// The router never retries and never records breaker outcomes; callers own
// the attempt and report success or failure themselves.
type Router struct {
	registry   *registry.Registry
	breaker    *circuitbreaker.CircuitBreaker
	health     HealthSource
	deployment DeploymentMode
	logger     *log.Logger
}

// RouterOption configures the Router during creation.
type RouterOption func(*Router)

// WithHealth enables health-biased ranking.
func WithHealth(h HealthSource) RouterOption {
	return func(r *Router) {
		r.health = h
	}
}

// WithDeploymentMode restricts routing to cloud or local models.
func WithDeploymentMode(mode DeploymentMode) RouterOption {
	return func(r *Router) {
		r.deployment = mode
	}
}

// WithRouterLogger sets a custom logger.
func WithRouterLogger(logger *log.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a Router over the given registry and circuit breaker.
// Health bias is off unless WithHealth is supplied.
func NewRouter(reg *registry.Registry, breaker *circuitbreaker.CircuitBreaker, opts ...RouterOption) *Router {
	r := &Router{
		registry:   reg,
		breaker:    breaker,
		deployment: DeploymentCloud,
		logger:     log.New(os.Stdout, "[ROUTER] ", log.LstdFlags),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Router) deploymentAllows(m registry.Model) bool {
	switch r.deployment {
	case DeploymentLocal:
		return m.LocalOnly
	case DeploymentHybrid:
		return true
	default:
		return !m.LocalOnly
	}
}

// rank builds the capability candidate list: the mode's preferred models
// first, in their configured order, then every remaining capable model
// ordered by the mode's fallback strategy.
func (r *Router) rank(cap registry.Capability, cfg execmode.Config) ([]registry.Model, error) {
	seen := make(map[string]bool)
	var ranked []registry.Model

	for _, id := range cfg.PreferredModels {
		m, err := r.registry.Get(id)
		if err != nil {
			continue
		}
		if seen[m.ID] || !m.HasCapability(cap) || !r.deploymentAllows(m) {
			continue
		}
		seen[m.ID] = true
		ranked = append(ranked, m)
	}

	ids, err := r.registry.ModelsForCapability(cap)
	if err != nil {
		if len(ranked) > 0 {
			return ranked, nil
		}
		return nil, err
	}

	var rest []registry.Model
	for _, id := range ids {
		m, err := r.registry.Get(id)
		if err != nil {
			continue
		}
		if seen[m.ID] || !r.deploymentAllows(m) {
			continue
		}
		seen[m.ID] = true
		rest = append(rest, m)
	}

	switch cfg.Fallback {
	case execmode.FallbackCheapest:
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].TotalCostPerToken() < rest[j].TotalCostPerToken()
		})
	case execmode.FallbackHighestQuality:
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].ReliabilityScore > rest[j].ReliabilityScore
		})
	default:
		// Automatic balances reliability first, then cost.
		sort.SliceStable(rest, func(i, j int) bool {
			if rest[i].ReliabilityScore != rest[j].ReliabilityScore {
				return rest[i].ReliabilityScore > rest[j].ReliabilityScore
			}
			return rest[i].TotalCostPerToken() < rest[j].TotalCostPerToken()
		})
	}

	return append(ranked, rest...), nil
}

// Route selects a model for the capability under the execution mode.
// Models whose provider circuit rejects traffic are skipped in rank order;
// a skip is never recorded as a provider failure. Providers cached as down
// are ranked after everything else, degraded providers stay in place.
func (r *Router) Route(ctx context.Context, cap registry.Capability, mode execmode.Mode) (*RouteDecision, error) {
	cfg, err := execmode.GetConfig(mode)
	if err != nil {
		return nil, err
	}

	ranked, err := r.rank(cap, cfg)
	if err != nil {
		return nil, err
	}

	// One verdict per provider per route; a route call never probes the
	// same provider twice.
	verdicts := make(map[string]health.Status)
	statusOf := func(provider string) health.Status {
		if r.health == nil {
			return health.StatusHealthy
		}
		if s, ok := verdicts[provider]; ok {
			return s
		}
		s := r.health.CheckProvider(ctx, provider).Status
		verdicts[provider] = s
		return s
	}

	var eligible, demoted []registry.Model
	for _, m := range ranked {
		if !r.breaker.IsAvailable(m.Provider) {
			r.logger.Printf("Skipping %s: circuit %s for provider %s", m.ID, r.breaker.GetState(m.Provider), m.Provider)
			continue
		}
		if statusOf(m.Provider) == health.StatusDown {
			demoted = append(demoted, m)
			continue
		}
		eligible = append(eligible, m)
	}
	ordered := append(eligible, demoted...)

	if len(ordered) == 0 {
		return nil, &NoRouteError{Capability: cap, Mode: mode}
	}

	return &RouteDecision{
		Model:      ordered[0],
		Alternates: ordered[1:],
		Mode:       mode,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.Timeout,
	}, nil
}
