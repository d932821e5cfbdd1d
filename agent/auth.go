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
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Tier is the rate limiting tier a caller belongs to.
type Tier string

const (
	TierDemo          Tier = "demo"
	TierAuthenticated Tier = "authenticated"
	TierAdmin         Tier = "admin"
)

// Identity is the resolved caller of a request. Authenticated callers are
// keyed by their token subject; anonymous callers are keyed by origin IP
// and limited at the demo tier.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Tier  Tier   `json:"tier"`
}

// IsDemo reports whether the caller is anonymous.
func (id Identity) IsDemo() bool { return id.Tier == TierDemo }

// IsAdmin reports whether the caller holds the admin role.
func (id Identity) IsAdmin() bool { return id.Tier == TierAdmin }

// Authenticator resolves caller identities from bearer tokens. Token
// issuance and session persistence live outside this service; the
// authenticator only parses and verifies what arrives on the wire.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator verifying HMAC-signed tokens
// with the given secret.
func NewAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{secret: secret}
}

// IdentityFromRequest resolves the caller. A valid bearer token yields an
// authenticated (or admin) identity; anything else, including a missing or
// invalid token, falls back to a demo identity keyed by client IP.
func (a *Authenticator) IdentityFromRequest(r *http.Request) Identity {
	token := bearerToken(r)
	if token == "" {
		return demoIdentity(r)
	}

	identity, err := a.parseToken(token)
	if err != nil {
		return demoIdentity(r)
	}
	return identity
}

func (a *Authenticator) parseToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	subject := getClaimString(claims, "sub")
	if subject == "" {
		subject = getClaimString(claims, "user_id")
	}
	if subject == "" {
		return Identity{}, fmt.Errorf("token carries no subject")
	}

	role := getClaimString(claims, "role")
	tier := TierAuthenticated
	if role == "admin" {
		tier = TierAdmin
	}

	return Identity{
		ID:    subject,
		Email: getClaimString(claims, "email"),
		Role:  role,
		Tier:  tier,
	}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func demoIdentity(r *http.Request) Identity {
	return Identity{ID: clientIP(r), Tier: TierDemo}
}

// clientIP returns the originating address, honoring the first entry of
// X-Forwarded-For when a proxy sits in front.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
