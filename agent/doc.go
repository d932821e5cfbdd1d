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
Package agent is the HTTP gateway in front of the AI Council routing core.

It resolves caller identities from bearer tokens (anonymous callers are
keyed by origin IP at the demo tier), spends rate limit quota on every API
request, and exposes:

  - POST /api/route - capability/mode routing decisions
  - GET /api/modes, /api/models - catalog and mode discovery
  - GET /health - service liveness
  - GET /metrics - Prometheus metrics
  - /admin/* - provider health, circuit stats/reset, and quota
    administration, gated on the admin role

Rate limited responses carry X-RateLimit-Remaining, X-RateLimit-Reset,
and Retry-After headers. The limiter fails open on store outages so a
redis failure degrades limiting, not all traffic.
*/
package agent
