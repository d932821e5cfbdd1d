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

/*
Package orchestrator is the adaptive routing core of AI Council: it decides
which model should serve a request and what to try next when providers
misbehave.

# Overview

The router composes the resilience subpackages into one decision:

  - execmode supplies the mode's preferred models, fallback strategy, and
    retry/timeout budget
  - registry supplies the capability-filtered candidate set and the
    cost/latency/reliability data the fallback strategies sort by
  - circuitbreaker gates candidates whose provider circuit is open
  - health demotes providers currently cached as down

The router itself holds no state and performs no retries. It returns a
RouteDecision: the first eligible model plus the ordered alternates, so
the execution layer owns every attempt and reports its outcome back to
the circuit breaker.

# Subpackages

  - circuitbreaker: per-provider Closed/Open/HalfOpen state machines with
    exponential backoff
  - ratelimit: redis-backed fixed-window caller quotas
  - registry: the static model catalog and scoring queries
  - execmode: fast / balanced / best_quality presets
  - health: cached, breaker-aware provider liveness checks
*/
package orchestrator
