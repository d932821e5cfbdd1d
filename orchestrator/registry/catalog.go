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

import "time"

// builtinCatalog is the shipped model catalog. Costs are USD per token,
// latencies are provider p50 averages. Ollama entries are local-only and
// free; they exist for local development and the hybrid deployment mode.
var builtinCatalog = []Model{
	{
		ID:                 "groq-llama3-70b",
		Provider:           "groq",
		RemoteName:         "llama3-70b-8192",
		Capabilities:       []Capability{CapabilityReasoning, CapabilityResearch, CapabilityCodeGeneration},
		CostPerInputToken:  0.00000059,
		CostPerOutputToken: 0.00000079,
		AverageLatency:     500 * time.Millisecond,
		MaxContext:         8192,
		ReliabilityScore:   0.95,
	},
	{
		ID:                 "groq-mixtral-8x7b",
		Provider:           "groq",
		RemoteName:         "mixtral-8x7b-32768",
		Capabilities:       []Capability{CapabilityReasoning, CapabilityCreativeOutput},
		CostPerInputToken:  0.00000027,
		CostPerOutputToken: 0.00000027,
		AverageLatency:     400 * time.Millisecond,
		MaxContext:         32768,
		ReliabilityScore:   0.93,
	},
	{
		ID:                 "together-mixtral-8x7b",
		Provider:           "together",
		RemoteName:         "mistralai/Mixtral-8x7B-Instruct-v0.1",
		Capabilities:       []Capability{CapabilityReasoning, CapabilityCodeGeneration},
		CostPerInputToken:  0.0000006,
		CostPerOutputToken: 0.0000006,
		AverageLatency:     1200 * time.Millisecond,
		MaxContext:         32768,
		ReliabilityScore:   0.92,
	},
	{
		ID:                 "together-llama2-70b",
		Provider:           "together",
		RemoteName:         "meta-llama/Llama-2-70b-chat-hf",
		Capabilities:       []Capability{CapabilityResearch, CapabilityCreativeOutput},
		CostPerInputToken:  0.0000009,
		CostPerOutputToken: 0.0000009,
		AverageLatency:     1500 * time.Millisecond,
		MaxContext:         4096,
		ReliabilityScore:   0.90,
	},
	{
		ID:                 "openrouter-claude-3-sonnet",
		Provider:           "openrouter",
		RemoteName:         "anthropic/claude-3-sonnet",
		Capabilities:       []Capability{CapabilityReasoning, CapabilityResearch, CapabilityCodeGeneration, CapabilityFactChecking},
		CostPerInputToken:  0.000003,
		CostPerOutputToken: 0.000015,
		AverageLatency:     2 * time.Second,
		MaxContext:         200000,
		ReliabilityScore:   0.98,
	},
	{
		ID:                 "openrouter-gpt4-turbo",
		Provider:           "openrouter",
		RemoteName:         "openai/gpt-4-turbo",
		Capabilities:       []Capability{CapabilityReasoning, CapabilityCodeGeneration, CapabilityDebugging},
		CostPerInputToken:  0.00001,
		CostPerOutputToken: 0.00003,
		AverageLatency:     3 * time.Second,
		MaxContext:         128000,
		ReliabilityScore:   0.97,
	},
	{
		ID:                 "huggingface-mistral-7b",
		Provider:           "huggingface",
		RemoteName:         "mistralai/Mistral-7B-Instruct-v0.2",
		Capabilities:       []Capability{CapabilityReasoning, CapabilityCreativeOutput},
		CostPerInputToken:  0.0000002,
		CostPerOutputToken: 0.0000002,
		AverageLatency:     2500 * time.Millisecond,
		MaxContext:         32768,
		ReliabilityScore:   0.85,
	},
	{
		ID:               "ollama-llama2",
		Provider:         "ollama",
		RemoteName:       "llama2",
		Capabilities:     []Capability{CapabilityReasoning, CapabilityResearch, CapabilityCreativeOutput},
		AverageLatency:   3 * time.Second,
		MaxContext:       4096,
		ReliabilityScore: 0.85,
		LocalOnly:        true,
	},
	{
		ID:               "ollama-mistral",
		Provider:         "ollama",
		RemoteName:       "mistral",
		Capabilities:     []Capability{CapabilityReasoning, CapabilityCodeGeneration, CapabilityCreativeOutput},
		AverageLatency:   2500 * time.Millisecond,
		MaxContext:       8192,
		ReliabilityScore: 0.87,
		LocalOnly:        true,
	},
	{
		ID:               "ollama-codellama",
		Provider:         "ollama",
		RemoteName:       "codellama",
		Capabilities:     []Capability{CapabilityCodeGeneration, CapabilityDebugging},
		AverageLatency:   3500 * time.Millisecond,
		MaxContext:       4096,
		ReliabilityScore: 0.83,
		LocalOnly:        true,
	},
}
