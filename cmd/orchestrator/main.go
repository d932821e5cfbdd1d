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

// Package main is the entry point for the AI Council gateway service.
//
// The gateway fronts the model provider fleet with:
// - Per-provider circuit breakers with exponential backoff
// - Redis-backed hourly rate limiting (demo / authenticated / admin tiers)
// - Cached provider health checks
// - Capability- and mode-aware adaptive routing
//
// Usage:
//
//	./orchestrator
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	REDIS_URL - Redis connection string (default: redis://localhost:6379)
//	JWT_SECRET - Secret for bearer token verification
//	MODEL_CATALOG - Optional YAML catalog overriding the built-in models
//	DEPLOYMENT_MODE - cloud, local, or hybrid (default: cloud)
//	RATE_LIMIT_AUTHENTICATED / RATE_LIMIT_DEMO / RATE_LIMIT_ADMIN -
//	  hourly tier limits (defaults: 100 / 10 / 1000)
package main

import (
	"github.com/Praharsh7270/Ai-Council/agent"
)

func main() {
	agent.Run()
}
