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

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_CatalogIsValid(t *testing.T) {
	r := Default()

	if len(r.IDs()) != 10 {
		t.Errorf("catalog size = %d, want 10", len(r.IDs()))
	}

	for _, id := range r.IDs() {
		m, err := r.Get(id)
		if err != nil {
			t.Fatalf("Get(%q): %v", id, err)
		}
		if m.Provider == "" || len(m.Capabilities) == 0 {
			t.Errorf("model %q has incomplete metadata: %+v", id, m)
		}
	}
}

func TestNew_RejectsInvalidEntries(t *testing.T) {
	valid := Model{
		ID:               "m1",
		Provider:         "p",
		Capabilities:     []Capability{CapabilityReasoning},
		ReliabilityScore: 0.9,
	}

	tests := []struct {
		name   string
		models []Model
	}{
		{"missing id", []Model{{Provider: "p", Capabilities: []Capability{CapabilityReasoning}}}},
		{"missing provider", []Model{{ID: "m", Capabilities: []Capability{CapabilityReasoning}}}},
		{"no capabilities", []Model{{ID: "m", Provider: "p"}}},
		{"reliability out of range", []Model{{ID: "m", Provider: "p", Capabilities: []Capability{CapabilityReasoning}, ReliabilityScore: 1.2}}},
		{"duplicate id", []Model{valid, valid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.models); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestModelsForCapability_MembersDeclareCapability(t *testing.T) {
	r := Default()

	caps := []Capability{
		CapabilityReasoning,
		CapabilityResearch,
		CapabilityCodeGeneration,
		CapabilityCreativeOutput,
		CapabilityFactChecking,
		CapabilityDebugging,
	}

	for _, cap := range caps {
		ids, err := r.ModelsForCapability(cap)
		if err != nil {
			t.Fatalf("ModelsForCapability(%q): %v", cap, err)
		}
		for _, id := range ids {
			m, _ := r.Get(id)
			if !m.HasCapability(cap) {
				t.Errorf("model %q returned for %q but does not declare it", id, cap)
			}
		}
	}
}

func TestModelsForCapability_NoCandidates(t *testing.T) {
	r := Default()

	_, err := r.ModelsForCapability(Capability("underwater-basket-weaving"))

	var ncErr *NoCandidatesError
	if !errors.As(err, &ncErr) {
		t.Fatalf("error = %v, want *NoCandidatesError", err)
	}
	if ncErr.Capability != "underwater-basket-weaving" {
		t.Errorf("error capability = %q, want the queried capability", ncErr.Capability)
	}
}

func TestCheapestForCapability_IsMinimal(t *testing.T) {
	r := Default()

	id, err := r.CheapestForCapability(CapabilityReasoning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chosen, _ := r.Get(id)
	ids, _ := r.ModelsForCapability(CapabilityReasoning)
	for _, other := range ids {
		m, _ := r.Get(other)
		if chosen.TotalCostPerToken() > m.TotalCostPerToken() {
			t.Errorf("cheapest %q costs %v > %q at %v", id, chosen.TotalCostPerToken(), other, m.TotalCostPerToken())
		}
	}

	// Local Ollama models are free and serve reasoning.
	if !chosen.LocalOnly && chosen.TotalCostPerToken() > 0 {
		t.Errorf("expected a zero-cost local model, got %q", id)
	}
}

func TestFastestForCapability_IsMinimal(t *testing.T) {
	r := Default()

	id, err := r.FastestForCapability(CapabilityReasoning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "groq-mixtral-8x7b" {
		t.Errorf("fastest reasoning model = %q, want groq-mixtral-8x7b (400ms)", id)
	}

	chosen, _ := r.Get(id)
	ids, _ := r.ModelsForCapability(CapabilityReasoning)
	for _, other := range ids {
		m, _ := r.Get(other)
		if chosen.AverageLatency > m.AverageLatency {
			t.Errorf("fastest %q at %v slower than %q at %v", id, chosen.AverageLatency, other, m.AverageLatency)
		}
	}
}

func TestBestQualityForCapability_IsMaximal(t *testing.T) {
	r := Default()

	id, err := r.BestQualityForCapability(CapabilityCodeGeneration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "openrouter-claude-3-sonnet" {
		t.Errorf("best quality code model = %q, want openrouter-claude-3-sonnet (0.98)", id)
	}

	chosen, _ := r.Get(id)
	ids, _ := r.ModelsForCapability(CapabilityCodeGeneration)
	for _, other := range ids {
		m, _ := r.Get(other)
		if chosen.ReliabilityScore < m.ReliabilityScore {
			t.Errorf("best %q at %v worse than %q at %v", id, chosen.ReliabilityScore, other, m.ReliabilityScore)
		}
	}
}

func TestQueriesTieBreakInCatalogOrder(t *testing.T) {
	models := []Model{
		{ID: "a", Provider: "p", Capabilities: []Capability{CapabilityReasoning}, CostPerInputToken: 1, AverageLatency: time.Second, ReliabilityScore: 0.5},
		{ID: "b", Provider: "p", Capabilities: []Capability{CapabilityReasoning}, CostPerInputToken: 1, AverageLatency: time.Second, ReliabilityScore: 0.5},
	}
	r, err := New(models)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if id, _ := r.CheapestForCapability(CapabilityReasoning); id != "a" {
		t.Errorf("cheapest tie-break = %q, want %q", id, "a")
	}
	if id, _ := r.FastestForCapability(CapabilityReasoning); id != "a" {
		t.Errorf("fastest tie-break = %q, want %q", id, "a")
	}
	if id, _ := r.BestQualityForCapability(CapabilityReasoning); id != "a" {
		t.Errorf("best quality tie-break = %q, want %q", id, "a")
	}
}

func TestCloudAndLocalPartition(t *testing.T) {
	r := Default()

	cloud := r.CloudModels()
	local := r.LocalModels()

	if len(cloud)+len(local) != len(r.IDs()) {
		t.Errorf("cloud (%d) + local (%d) != total (%d)", len(cloud), len(local), len(r.IDs()))
	}

	for _, id := range local {
		if !r.IsLocalModel(id) {
			t.Errorf("IsLocalModel(%q) = false for local model", id)
		}
		m, _ := r.Get(id)
		if m.Provider != "ollama" {
			t.Errorf("local model %q served by %q, want ollama", id, m.Provider)
		}
		if m.TotalCostPerToken() != 0 {
			t.Errorf("local model %q has nonzero cost", id)
		}
	}

	if r.IsLocalModel("groq-llama3-70b") {
		t.Error("IsLocalModel(groq-llama3-70b) = true, want false")
	}
	if r.IsLocalModel("no-such-model") {
		t.Error("IsLocalModel(unknown) = true, want false")
	}
}

func TestGet_NotFound(t *testing.T) {
	r := Default()

	_, err := r.Get("no-such-model")

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `models:
  - id: test-model
    provider: testprov
    remote_name: test/model-v1
    capabilities: [reasoning, code_generation]
    cost_per_input_token: 0.000001
    cost_per_output_token: 0.000002
    average_latency: 750ms
    max_context: 16384
    reliability_score: 0.91
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	r, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := r.Get("test-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Provider != "testprov" {
		t.Errorf("provider = %q, want testprov", m.Provider)
	}
	if m.AverageLatency != 750*time.Millisecond {
		t.Errorf("latency = %v, want 750ms", m.AverageLatency)
	}
	if !m.HasCapability(CapabilityCodeGeneration) {
		t.Error("expected code_generation capability")
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"no models", "models: []"},
		{"bad latency", "models:\n  - id: m\n    provider: p\n    capabilities: [reasoning]\n    average_latency: soon\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := LoadCatalog(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := LoadCatalog(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
