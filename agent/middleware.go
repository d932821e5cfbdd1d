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
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Praharsh7270/Ai-Council/orchestrator/ratelimit"
)

type contextKey string

const (
	identityContextKey  contextKey = "caller_identity"
	requestIDContextKey contextKey = "request_id"
)

// IdentityFromContext returns the identity resolved by the rate limit
// middleware, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// RequestIDFromContext returns the request ID assigned by the request ID
// middleware, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}

// requestIDMiddleware assigns each request an ID, honoring an inbound
// X-Request-ID so IDs survive proxy hops, and echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware resolves the caller identity, spends one unit of the
// caller's hourly quota, and attaches the standard X-RateLimit headers.
// Exhausted quotas get a 429 with Retry-After; a broken store fails open
// so a redis outage degrades limiting rather than all traffic.
func (g *Gateway) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := g.auth.IdentityFromRequest(r)
		ctx := context.WithValue(r.Context(), identityContextKey, identity)

		allowed, remaining, resetAt, err := g.limiter.CheckLimit(ctx, identity.ID, identity.IsDemo(), identity.IsAdmin())

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(g.tierLimit(identity.Tier)))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			var limitErr *ratelimit.RateLimitError
			if errors.As(err, &limitErr) {
				retryAfter := int(limitErr.RetryAfter / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				promRateLimitedTotal.Inc()
				g.metrics.recordBlocked()
				sendErrorResponse(w, fmt.Sprintf("Rate limit exceeded: %d requests per hour", limitErr.Limit),
					http.StatusTooManyRequests)
				return
			}

			// Store failure: log and let the request through.
			g.logger.Printf("Rate limit check failed for %s: %v", identity.ID, err)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates administrative endpoints on the admin role.
func (g *Gateway) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := g.auth.IdentityFromRequest(r)
		if !identity.IsAdmin() {
			sendErrorResponse(w, "Admin access required", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// metricsMiddleware records request counts and latency.
func (g *Gateway) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		elapsed := time.Since(start)
		promRequestsTotal.WithLabelValues(strconv.Itoa(recorder.status)).Inc()
		promRequestDuration.Observe(float64(elapsed.Milliseconds()))
		g.metrics.record(recorder.status, elapsed)
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (g *Gateway) tierLimit(tier Tier) int {
	limits := g.limiter.Limits()
	switch tier {
	case TierAdmin:
		return limits.Admin
	case TierDemo:
		return limits.Demo
	default:
		return limits.Authenticated
	}
}
