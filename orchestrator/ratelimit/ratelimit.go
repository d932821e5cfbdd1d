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

// Package ratelimit enforces per-caller request quotas over fixed hourly
// windows, backed by the shared counting store.
//
// Counters are keyed by (identifier, window start) and expire with the
// window. This is fixed-window accounting, not a rolling interval: a
// caller can issue up to 2x the limit across a window boundary. That
// boundary behavior is inherited deliberately; callers depend on the
// window-aligned reset timestamps it produces.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Praharsh7270/Ai-Council/common/store"
)

// Default per-hour limits for the three caller tiers.
const (
	DefaultAuthenticatedLimit = 100
	DefaultDemoLimit          = 10
	DefaultAdminLimit         = 1000

	// windowSeconds is the fixed window length (one hour).
	windowSeconds = 3600
)

// RateLimitError is returned by CheckLimit when the caller's quota for
// the current window is exhausted.
type RateLimitError struct {
	Identifier string
	Limit      int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q: %d requests per hour (retry after %v)",
		e.Identifier, e.Limit, e.RetryAfter)
}

// Limits holds the per-tier hourly request limits.
type Limits struct {
	Authenticated int
	Demo          int
	Admin         int
}

// DefaultLimits returns the tier limits, honoring the
// RATE_LIMIT_AUTHENTICATED, RATE_LIMIT_DEMO, and RATE_LIMIT_ADMIN
// environment variables when set.
func DefaultLimits() Limits {
	return Limits{
		Authenticated: getEnvInt("RATE_LIMIT_AUTHENTICATED", DefaultAuthenticatedLimit),
		Demo:          getEnvInt("RATE_LIMIT_DEMO", DefaultDemoLimit),
		Admin:         getEnvInt("RATE_LIMIT_ADMIN", DefaultAdminLimit),
	}
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// Limiter enforces caller quotas against the shared store.
type Limiter struct {
	store  store.Store
	limits Limits
	logger *log.Logger
	now    func() time.Time
}

// Option configures the Limiter during creation.
type Option func(*Limiter)

// WithLogger sets a custom logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter over the given store.
func New(s store.Store, limits Limits, opts ...Option) *Limiter {
	l := &Limiter{
		store:  s,
		limits: limits,
		logger: log.New(os.Stdout, "[RATE_LIMIT] ", log.LstdFlags),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// windowStart returns the aligned start of the current hourly window, in
// Unix seconds.
func (l *Limiter) windowStart() int64 {
	now := l.now().Unix()
	return now - (now % windowSeconds)
}

// counterKey builds the store key for an identifier in the given window.
// Demo (anonymous-origin) callers use a separate keyspace so an IP and a
// user id can never collide.
func counterKey(identifier string, isDemo bool, windowStart int64) string {
	if isDemo {
		return fmt.Sprintf("rate_limit:demo:%s:hour:%d", identifier, windowStart)
	}
	return fmt.Sprintf("rate_limit:%s:hour:%d", identifier, windowStart)
}

// limitFor selects the tier limit for the caller.
func (l *Limiter) limitFor(isDemo, isAdmin bool) int {
	switch {
	case isAdmin:
		return l.limits.Admin
	case isDemo:
		return l.limits.Demo
	default:
		return l.limits.Authenticated
	}
}

// CheckLimit records one request for the caller and reports whether it is
// within quota. It returns the requests remaining in the current window
// and the window-aligned reset time. On rejection the returned error is a
// *RateLimitError carrying the retry-after duration and remaining is 0.
//
// The count is taken from a single atomic increment-with-expiry against
// the store, so concurrent requests at the limit cannot both pass on a
// stale count.
func (l *Limiter) CheckLimit(ctx context.Context, identifier string, isDemo, isAdmin bool) (allowed bool, remaining int, resetAt time.Time, err error) {
	limit := l.limitFor(isDemo, isAdmin)
	windowStart := l.windowStart()
	resetAt = time.Unix(windowStart+windowSeconds, 0)

	key := counterKey(identifier, isDemo, windowStart)

	count, err := l.store.Increment(ctx, key, windowSeconds*time.Second)
	if err != nil {
		return false, 0, resetAt, fmt.Errorf("rate limit check for %q: %w", identifier, err)
	}

	if count > int64(limit) {
		l.logger.Printf("Identifier %s exceeded limit of %d requests/hour", identifier, limit)
		return false, 0, resetAt, &RateLimitError{
			Identifier: identifier,
			Limit:      limit,
			RetryAfter: resetAt.Sub(l.now()),
			ResetAt:    resetAt,
		}
	}

	return true, limit - int(count), resetAt, nil
}

// CurrentUsage returns the caller's request count in the current window
// without incrementing it, plus the window-aligned reset time.
func (l *Limiter) CurrentUsage(ctx context.Context, identifier string, isDemo bool) (int, time.Time, error) {
	windowStart := l.windowStart()
	resetAt := time.Unix(windowStart+windowSeconds, 0)

	key := counterKey(identifier, isDemo, windowStart)

	val, found, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, resetAt, fmt.Errorf("rate limit usage for %q: %w", identifier, err)
	}
	if !found {
		return 0, resetAt, nil
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, resetAt, fmt.Errorf("rate limit counter for %q is not numeric: %w", identifier, err)
	}

	return count, resetAt, nil
}

// ResetLimit clears the caller's counter for the current window.
// Administrative operation; resetting an absent counter is not an error.
func (l *Limiter) ResetLimit(ctx context.Context, identifier string, isDemo bool) error {
	key := counterKey(identifier, isDemo, l.windowStart())

	if err := l.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("rate limit reset for %q: %w", identifier, err)
	}

	l.logger.Printf("Rate limit reset for identifier %s", identifier)
	return nil
}

// Limits returns the configured tier limits.
func (l *Limiter) Limits() Limits {
	return l.limits
}
