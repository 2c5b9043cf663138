// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package authz

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ferm/internal/logging"
)

type contextKey struct{}

// Subject is the authenticated caller.
type Subject struct {
	UserID int64
	Email  string
	Role   string
}

// IsAdmin reports whether the subject holds the admin role.
func (s *Subject) IsAdmin() bool { return s.Role == RoleAdmin }

// ContextWithSubject stores s in ctx.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SubjectFromContext returns the caller stored by Authenticate, or nil.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(contextKey{}).(*Subject)
	return s
}

// DenyFunc writes the response for a rejected request. err wraps
// ErrUnauthenticated or ErrForbidden.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates and authorizes requests.
type Middleware struct {
	verifier *Verifier
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware builds the middleware. A nil deny writes plain text errors.
func NewMiddleware(verifier *Verifier, enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = plainDeny
	}
	return &Middleware{verifier: verifier, enforcer: enforcer, deny: deny}
}

// Enforcer returns the policy enforcer.
func (m *Middleware) Enforcer() *Enforcer { return m.enforcer }

// Authenticate requires a valid bearer token and stores the Subject in the
// request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.deny(w, r, ErrUnauthenticated)
			return
		}
		claims, err := m.verifier.Verify(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
			m.deny(w, r, err)
			return
		}

		subject := &Subject{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
		ctx := ContextWithSubject(r.Context(), subject)
		ctx = logging.ContextWithCorrelationID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize checks the caller's role against the request path and method.
// It must run after Authenticate.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := SubjectFromContext(r.Context())
		if subject == nil {
			m.deny(w, r, ErrUnauthenticated)
			return
		}

		allowed, err := m.enforcer.Enforce(subject.Role, r.URL.Path, r.Method)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Info().Int64("user_id", subject.UserID).Str("role", subject.Role).
				Str("path", r.URL.Path).Msg("Request denied by policy")
			m.deny(w, r, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func plainDeny(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrForbidden) {
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		return
	}
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
