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

// Package execmode defines the named execution mode presets that trade
// cost against quality. Each mode is a fixed struct constructed once at
// startup and treated as immutable; all trade-off logic lives in the
// authored values, not in runtime heuristics, so the fast <= balanced <=
// best_quality ordering is a data invariant the Validate function can
// enforce.
package execmode

import (
	"fmt"
	"time"
)

// Mode names an execution preset.
type Mode string

// The three shipped execution modes.
const (
	ModeFast        Mode = "fast"
	ModeBalanced    Mode = "balanced"
	ModeBestQuality Mode = "best_quality"
)

// FallbackStrategy selects how the router extends a mode's preferred
// model list when none of the preferred candidates is eligible.
type FallbackStrategy string

// Fallback strategies.
const (
	FallbackCheapest       FallbackStrategy = "cheapest"
	FallbackAutomatic      FallbackStrategy = "automatic"
	FallbackHighestQuality FallbackStrategy = "highest_quality"
)

// UnknownModeError is returned for mode names outside the shipped set.
type UnknownModeError struct {
	Mode Mode
}

// Error implements the error interface.
func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown execution mode: %q", e.Mode)
}

// Config is the static parameter set for one execution mode.
type Config struct {
	Mode Mode

	// MaxParallelExecutions caps concurrent subtask dispatch.
	MaxParallelExecutions int

	// Timeout bounds a single orchestrated execution.
	Timeout time.Duration

	// MaxRetries is the retry budget the orchestration layer may spend.
	// Routing itself never retries.
	MaxRetries int

	// EnableArbitration turns on conflict arbitration between answers.
	EnableArbitration bool

	// EnableSynthesis turns on result synthesis.
	EnableSynthesis bool

	// AccuracyRequirement is the acceptance threshold in [0, 1].
	AccuracyRequirement float64

	// CostLimit is the USD ceiling for one execution; nil means no limit.
	CostLimit *float64

	// PreferredModels is the ranked model id list tried first.
	PreferredModels []string

	// Fallback selects the registry query used past the preferred list.
	Fallback FallbackStrategy
}

// Summary describes a mode for documentation surfaces.
type Summary struct {
	Description string `json:"description"`
	UseCase     string `json:"use_case"`
}

func costLimit(v float64) *float64 { return &v }

// configs holds the shipped presets, keyed by mode.
var configs = map[Mode]Config{
	ModeFast: {
		Mode:                  ModeFast,
		MaxParallelExecutions: 3,
		Timeout:               30 * time.Second,
		MaxRetries:            1,
		EnableArbitration:     false,
		EnableSynthesis:       true,
		AccuracyRequirement:   0.7,
		CostLimit:             costLimit(1.0),
		PreferredModels: []string{
			"groq-mixtral-8x7b",
			"huggingface-mistral-7b",
			"together-mixtral-8x7b",
		},
		Fallback: FallbackCheapest,
	},
	ModeBalanced: {
		Mode:                  ModeBalanced,
		MaxParallelExecutions: 5,
		Timeout:               60 * time.Second,
		MaxRetries:            3,
		EnableArbitration:     true,
		EnableSynthesis:       true,
		AccuracyRequirement:   0.8,
		CostLimit:             costLimit(5.0),
		PreferredModels: []string{
			"groq-llama3-70b",
			"together-mixtral-8x7b",
			"groq-mixtral-8x7b",
			"together-llama2-70b",
		},
		Fallback: FallbackAutomatic,
	},
	ModeBestQuality: {
		Mode:                  ModeBestQuality,
		MaxParallelExecutions: 8,
		Timeout:               120 * time.Second,
		MaxRetries:            5,
		EnableArbitration:     true,
		EnableSynthesis:       true,
		AccuracyRequirement:   0.95,
		CostLimit:             nil,
		PreferredModels: []string{
			"openrouter-claude-3-sonnet",
			"openrouter-gpt4-turbo",
			"groq-llama3-70b",
			"together-llama2-70b",
		},
		Fallback: FallbackHighestQuality,
	},
}

var summaries = map[Mode]Summary{
	ModeFast: {
		Description: "Minimal decomposition, cheaper models, faster response",
		UseCase:     "Quick queries, simple tasks, cost-sensitive operations",
	},
	ModeBalanced: {
		Description: "Moderate decomposition, mixed models, balanced approach",
		UseCase:     "General purpose, standard queries, balanced cost/quality",
	},
	ModeBestQuality: {
		Description: "Maximum decomposition, premium models, highest quality",
		UseCase:     "Complex tasks, critical decisions, quality-first operations",
	},
}

// Modes returns the shipped mode names in ascending-aggressiveness order.
func Modes() []Mode {
	return []Mode{ModeFast, ModeBalanced, ModeBestQuality}
}

// GetConfig returns the config for mode, or *UnknownModeError.
func GetConfig(mode Mode) (Config, error) {
	cfg, ok := configs[mode]
	if !ok {
		return Config{}, &UnknownModeError{Mode: mode}
	}

	// Hand out a copy so a caller can never mutate the shared preset.
	preferred := make([]string, len(cfg.PreferredModels))
	copy(preferred, cfg.PreferredModels)
	cfg.PreferredModels = preferred

	if cfg.CostLimit != nil {
		limit := *cfg.CostLimit
		cfg.CostLimit = &limit
	}

	return cfg, nil
}

// PreferredModels returns the mode's ranked model list.
func PreferredModels(mode Mode) ([]string, error) {
	cfg, err := GetConfig(mode)
	if err != nil {
		return nil, err
	}
	return cfg.PreferredModels, nil
}

// CostLimit returns the mode's USD ceiling; nil means unlimited.
func CostLimit(mode Mode) (*float64, error) {
	cfg, err := GetConfig(mode)
	if err != nil {
		return nil, err
	}
	return cfg.CostLimit, nil
}

// ArbitrationEnabled reports whether the mode arbitrates conflicts.
func ArbitrationEnabled(mode Mode) (bool, error) {
	cfg, err := GetConfig(mode)
	if err != nil {
		return false, err
	}
	return cfg.EnableArbitration, nil
}

// MaxParallel returns the mode's parallel execution cap.
func MaxParallel(mode Mode) (int, error) {
	cfg, err := GetConfig(mode)
	if err != nil {
		return 0, err
	}
	return cfg.MaxParallelExecutions, nil
}

// AccuracyRequirement returns the mode's acceptance threshold.
func AccuracyRequirement(mode Mode) (float64, error) {
	cfg, err := GetConfig(mode)
	if err != nil {
		return 0, err
	}
	return cfg.AccuracyRequirement, nil
}

// Describe returns the mode's documentation summary.
func Describe(mode Mode) (Summary, error) {
	s, ok := summaries[mode]
	if !ok {
		return Summary{}, &UnknownModeError{Mode: mode}
	}
	return s, nil
}

// Validate checks the cross-mode ordering invariant: every trade-off
// parameter must be non-decreasing from fast through balanced to
// best_quality, and fast's cost limit, when both are set, must be the
// strictly smallest. Called at startup; a failure means the shipped
// presets were edited inconsistently.
func Validate() error {
	modes := Modes()
	for i := 1; i < len(modes); i++ {
		lo := configs[modes[i-1]]
		hi := configs[modes[i]]

		if lo.MaxParallelExecutions > hi.MaxParallelExecutions {
			return fmt.Errorf("mode %s max_parallel_executions %d exceeds %s's %d",
				lo.Mode, lo.MaxParallelExecutions, hi.Mode, hi.MaxParallelExecutions)
		}
		if lo.AccuracyRequirement > hi.AccuracyRequirement {
			return fmt.Errorf("mode %s accuracy_requirement %f exceeds %s's %f",
				lo.Mode, lo.AccuracyRequirement, hi.Mode, hi.AccuracyRequirement)
		}
		if lo.Timeout > hi.Timeout {
			return fmt.Errorf("mode %s timeout %v exceeds %s's %v",
				lo.Mode, lo.Timeout, hi.Mode, hi.Timeout)
		}
		if lo.MaxRetries > hi.MaxRetries {
			return fmt.Errorf("mode %s max_retries %d exceeds %s's %d",
				lo.Mode, lo.MaxRetries, hi.Mode, hi.MaxRetries)
		}
		if lo.CostLimit != nil && hi.CostLimit != nil && *lo.CostLimit >= *hi.CostLimit {
			return fmt.Errorf("mode %s cost_limit %f not below %s's %f",
				lo.Mode, *lo.CostLimit, hi.Mode, *hi.CostLimit)
		}
	}
	return nil
}
