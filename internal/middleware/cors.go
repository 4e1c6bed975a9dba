// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// Defaults cover the API's browser-facing surface: reads plus the
// exclusion POST, with the headers those calls actually send.
var (
	defaultAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	defaultAllowedHeaders = []string{"Content-Type", RequestIDHeader}
)

// CORSConfig configures cross-origin access for browser clients.
type CORSConfig struct {
	// AllowedOrigins lists the exact origins permitted to call the API.
	// Origins are matched literally (no wildcards); CORS is disabled
	// entirely when the list is empty.
	AllowedOrigins []string

	// AllowedMethods and AllowedHeaders fall back to the API defaults
	// when unset.
	AllowedMethods []string
	AllowedHeaders []string

	// MaxAge is how long browsers may cache preflight responses, in
	// seconds. Zero omits the caching header.
	MaxAge int
}

// CORS returns middleware enforcing the origin allowlist and answering
// preflight OPTIONS requests. Requests from unlisted origins are
// rejected with 403; requests without an Origin header (same-origin or
// non-browser callers) pass through untouched.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool)
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultAllowedMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultAllowedHeaders
	}
	methodsHeader := strings.Join(methods, ", ")
	headersHeader := strings.Join(headers, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedOrigins) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !allowedOrigins[origin] {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methodsHeader)
				w.Header().Set("Access-Control-Allow-Headers", headersHeader)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
