// Package api implements HTTP handlers and helpers for the staffcast service.
package api

import (
    "net/http"
    "strings"
)

type Principal struct {
    Tenant string
    Role   string // admin, planner, viewer
}

// getPrincipal extracts tenant and role from the bearer token or headers.
// - If Authorization: Bearer is present, uses the configured verifier
//   (dev or hmac).
// - Else falls back to headers for dev.
func (s *Server) getPrincipal(r *http.Request) Principal {
    authz := r.Header.Get("Authorization")
    if strings.HasPrefix(strings.ToLower(authz), "bearer ") && s.Auth != nil {
        tok := strings.TrimSpace(authz[len("Bearer "):])
        if pr, err := s.Auth.Verify(tok); err == nil {
            return Principal{Tenant: pr.Tenant, Role: pr.Role}
        }
    }
    tenant := r.Header.Get("X-Tenant-Id")
    role := r.Header.Get("X-Role")
    if tenant == "" {
        tenant = "t_demo"
    }
    if role == "" {
        role = "admin"
    }
    return Principal{Tenant: tenant, Role: strings.ToLower(role)}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanPlan reports whether the principal may run forecasts and plans.
func (p Principal) CanPlan() bool { return p.Role == "admin" || p.Role == "planner" }
