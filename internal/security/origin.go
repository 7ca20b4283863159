// Package security holds request-level checks shared by the HTTP API and the
// terminal WebSocket endpoint.
package security

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// OriginChecker validates WebSocket and CORS origins. A request is allowed
// when it carries no Origin header, when the origin names the host the
// request was sent to, when the origin is a loopback host, or when it matches
// a configured pattern.
type OriginChecker struct {
	allowed atomic.Pointer[[]string]
}

// NewOriginChecker creates a new origin checker.
func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	oc := &OriginChecker{}
	oc.SetAllowed(allowedOrigins)
	return oc
}

// SetAllowed replaces the configured origin patterns.
func (oc *OriginChecker) SetAllowed(allowedOrigins []string) {
	list := append([]string(nil), allowedOrigins...)
	oc.allowed.Store(&list)
}

// CheckOrigin validates the origin header in a request.
func (oc *OriginChecker) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// browsers omit Origin on same-origin navigation
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	if strings.EqualFold(parsed.Host, r.Host) {
		return true
	}
	if isLocalhost(parsed.Hostname()) {
		return true
	}

	for _, allowed := range *oc.allowed.Load() {
		if allowed == "*" || matchOrigin(origin, allowed) {
			return true
		}
	}
	return false
}

// isLocalhost checks if a host is localhost.
func isLocalhost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// matchOrigin checks if an origin matches an allowed pattern.
// Supports exact match and wildcard subdomain matching (*.example.com).
func matchOrigin(origin, allowed string) bool {
	if strings.EqualFold(origin, allowed) {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if strings.HasPrefix(allowed, "*.") {
		domain := allowed[1:] // ".example.com"
		host := parsed.Hostname()
		return strings.HasSuffix(host, domain) || host == domain[1:]
	}
	return false
}
