// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig gates the pprof endpoints. Profiles expose runtime
// internals (heap contents included), so they are strictly a
// development tool.
type ProfilingConfig struct {
	Enabled     bool
	Environment string
}

// Profiling exposes /debug/pprof/* when enabled. It refuses to serve
// profiles in production regardless of the Enabled flag; everything
// that is not a pprof path falls through to the next handler.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}

		if config.Environment == "production" || config.Environment == "prod" {
			slog.Error("refusing to enable profiling in production",
				"environment", config.Environment)
			return next
		}

		slog.Warn("pprof endpoints enabled",
			"environment", config.Environment,
			"endpoints", "/debug/pprof/*")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/debug/pprof") {
				next.ServeHTTP(w, r)
				return
			}

			switch r.URL.Path {
			case "/debug/pprof/cmdline":
				pprof.Cmdline(w, r)
			case "/debug/pprof/profile":
				pprof.Profile(w, r)
			case "/debug/pprof/symbol":
				pprof.Symbol(w, r)
			case "/debug/pprof/trace":
				pprof.Trace(w, r)
			default:
				// Index serves /debug/pprof/ and the named profiles
				// (heap, goroutine, block, mutex, allocs).
				pprof.Index(w, r)
			}
		})
	}
}
