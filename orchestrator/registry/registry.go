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

// Package registry holds the static catalog of callable models with their
// cost, latency, reliability, and capability metadata, plus the scoring
// queries the router composes. The catalog is immutable after load; every
// query is a pure function over it.
package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Capability tags the kind of task a model can serve.
type Capability string

// Task capabilities recognized by the catalog.
const (
	CapabilityReasoning      Capability = "reasoning"
	CapabilityResearch       Capability = "research"
	CapabilityCodeGeneration Capability = "code_generation"
	CapabilityCreativeOutput Capability = "creative_output"
	CapabilityFactChecking   Capability = "fact_checking"
	CapabilityDebugging      Capability = "debugging"
)

// Model is one catalog entry. Immutable after registry construction.
type Model struct {
	// ID is the catalog key (e.g. "groq-llama3-70b").
	ID string `json:"id"`

	// Provider is the opaque provider key used as the partition key for
	// circuit and health state (e.g. "groq", "together").
	Provider string `json:"provider"`

	// RemoteName is the model identifier the provider's API expects.
	RemoteName string `json:"remote_name"`

	// Capabilities lists the task types the model can serve.
	Capabilities []Capability `json:"capabilities"`

	// CostPerInputToken and CostPerOutputToken are USD per token.
	CostPerInputToken  float64 `json:"cost_per_input_token"`
	CostPerOutputToken float64 `json:"cost_per_output_token"`

	// AverageLatency is the typical end-to-end response time.
	AverageLatency time.Duration `json:"average_latency"`

	// MaxContext is the context window size in tokens.
	MaxContext int `json:"max_context"`

	// ReliabilityScore grades historical answer quality in [0, 1].
	ReliabilityScore float64 `json:"reliability_score"`

	// LocalOnly marks models served by a local runtime (Ollama); they
	// are excluded from routing in the cloud deployment mode.
	LocalOnly bool `json:"local_only"`
}

// HasCapability reports whether the model declares the capability.
func (m Model) HasCapability(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// TotalCostPerToken is the scoring cost: input plus output rate.
func (m Model) TotalCostPerToken() float64 {
	return m.CostPerInputToken + m.CostPerOutputToken
}

// NoCandidatesError is returned by capability queries when no registered
// model serves the requested capability. This is a configuration error
// and must surface to the caller as a routing failure.
type NoCandidatesError struct {
	Capability Capability
}

// Error implements the error interface.
func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("no models registered for capability %q", e.Capability)
}

// NotFoundError is returned by Get for an unknown model id.
type NotFoundError struct {
	ModelID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %q not found in registry", e.ModelID)
}

// Registry is the read-only model catalog. Safe for concurrent use; it is
// never mutated after New returns.
type Registry struct {
	order  []string
	models map[string]Model
}

// New builds a registry from the given models, preserving their order for
// deterministic tie-breaking. Duplicate ids and empty fields are rejected.
func New(models []Model) (*Registry, error) {
	r := &Registry{
		order:  make([]string, 0, len(models)),
		models: make(map[string]Model, len(models)),
	}

	for _, m := range models {
		if m.ID == "" || m.Provider == "" {
			return nil, fmt.Errorf("model entry missing id or provider: %+v", m)
		}
		if len(m.Capabilities) == 0 {
			return nil, fmt.Errorf("model %q declares no capabilities", m.ID)
		}
		if m.ReliabilityScore < 0 || m.ReliabilityScore > 1 {
			return nil, fmt.Errorf("model %q reliability score %f out of [0,1]", m.ID, m.ReliabilityScore)
		}
		if _, exists := r.models[m.ID]; exists {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}

		capsCopy := make([]Capability, len(m.Capabilities))
		copy(capsCopy, m.Capabilities)
		m.Capabilities = capsCopy

		r.order = append(r.order, m.ID)
		r.models[m.ID] = m
	}

	return r, nil
}

// Default returns a registry over the shipped catalog.
func Default() *Registry {
	r, err := New(builtinCatalog)
	if err != nil {
		// The builtin catalog is compiled in; a validation failure here
		// is a programming error.
		panic(fmt.Sprintf("builtin model catalog invalid: %v", err))
	}
	return r
}

// Get returns the model for id.
func (r *Registry) Get(id string) (Model, error) {
	m, ok := r.models[id]
	if !ok {
		return Model{}, &NotFoundError{ModelID: id}
	}
	return m, nil
}

// Has reports whether id is in the catalog.
func (r *Registry) Has(id string) bool {
	_, ok := r.models[id]
	return ok
}

// IDs returns all model ids in catalog order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Providers returns the distinct provider keys in catalog order.
func (r *Registry) Providers() []string {
	seen := make(map[string]bool)
	var providers []string
	for _, id := range r.order {
		p := r.models[id].Provider
		if !seen[p] {
			seen[p] = true
			providers = append(providers, p)
		}
	}
	return providers
}

// ModelsForCapability returns ids of all models declaring cap, in catalog
// order. Returns *NoCandidatesError when none do.
func (r *Registry) ModelsForCapability(cap Capability) ([]string, error) {
	var ids []string
	for _, id := range r.order {
		if r.models[id].HasCapability(cap) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, &NoCandidatesError{Capability: cap}
	}
	return ids, nil
}

// CheapestForCapability returns the id of the model with the lowest
// combined input+output token cost among those serving cap. Ties break in
// catalog order.
func (r *Registry) CheapestForCapability(cap Capability) (string, error) {
	return r.pickForCapability(cap, func(best, candidate Model) bool {
		return candidate.TotalCostPerToken() < best.TotalCostPerToken()
	})
}

// FastestForCapability returns the id of the lowest-latency model serving
// cap. Ties break in catalog order.
func (r *Registry) FastestForCapability(cap Capability) (string, error) {
	return r.pickForCapability(cap, func(best, candidate Model) bool {
		return candidate.AverageLatency < best.AverageLatency
	})
}

// BestQualityForCapability returns the id of the highest-reliability model
// serving cap. Ties break in catalog order.
func (r *Registry) BestQualityForCapability(cap Capability) (string, error) {
	return r.pickForCapability(cap, func(best, candidate Model) bool {
		return candidate.ReliabilityScore > best.ReliabilityScore
	})
}

// pickForCapability scans capability candidates in catalog order, keeping
// the first model that wins every strict comparison.
func (r *Registry) pickForCapability(cap Capability, better func(best, candidate Model) bool) (string, error) {
	ids, err := r.ModelsForCapability(cap)
	if err != nil {
		return "", err
	}

	bestID := ids[0]
	for _, id := range ids[1:] {
		if better(r.models[bestID], r.models[id]) {
			bestID = id
		}
	}
	return bestID, nil
}

// CloudModels returns ids of models callable through cloud providers, in
// catalog order.
func (r *Registry) CloudModels() []string {
	var ids []string
	for _, id := range r.order {
		if !r.models[id].LocalOnly {
			ids = append(ids, id)
		}
	}
	return ids
}

// LocalModels returns ids of local-only models, in catalog order.
func (r *Registry) LocalModels() []string {
	var ids []string
	for _, id := range r.order {
		if r.models[id].LocalOnly {
			ids = append(ids, id)
		}
	}
	return ids
}

// IsLocalModel reports whether id names a local-only model. Unknown ids
// report false.
func (r *Registry) IsLocalModel(id string) bool {
	m, ok := r.models[id]
	return ok && m.LocalOnly
}

// catalogFile is the YAML shape of an external catalog.
type catalogFile struct {
	Models []catalogEntry `yaml:"models"`
}

type catalogEntry struct {
	ID                 string   `yaml:"id"`
	Provider           string   `yaml:"provider"`
	RemoteName         string   `yaml:"remote_name"`
	Capabilities       []string `yaml:"capabilities"`
	CostPerInputToken  float64  `yaml:"cost_per_input_token"`
	CostPerOutputToken float64  `yaml:"cost_per_output_token"`
	AverageLatency     string   `yaml:"average_latency"`
	MaxContext         int      `yaml:"max_context"`
	ReliabilityScore   float64  `yaml:"reliability_score"`
	LocalOnly          bool     `yaml:"local_only"`
}

// LoadCatalog builds a registry from a YAML catalog file. Latencies are
// Go duration strings (e.g. "500ms", "2s").
func LoadCatalog(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no models", path)
	}

	models := make([]Model, 0, len(file.Models))
	for _, e := range file.Models {
		latency, err := time.ParseDuration(e.AverageLatency)
		if err != nil {
			return nil, fmt.Errorf("model %q: invalid average_latency %q: %w", e.ID, e.AverageLatency, err)
		}

		caps := make([]Capability, len(e.Capabilities))
		for i, c := range e.Capabilities {
			caps[i] = Capability(c)
		}

		models = append(models, Model{
			ID:                 e.ID,
			Provider:           e.Provider,
			RemoteName:         e.RemoteName,
			Capabilities:       caps,
			CostPerInputToken:  e.CostPerInputToken,
			CostPerOutputToken: e.CostPerOutputToken,
			AverageLatency:     latency,
			MaxContext:         e.MaxContext,
			ReliabilityScore:   e.ReliabilityScore,
			LocalOnly:          e.LocalOnly,
		})
	}

	return New(models)
}
