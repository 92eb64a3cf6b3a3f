package middleware

import (
	"net/http"
	"strings"
)

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	// AllowedOrigins is an allowlist; "*" allows any origin and is sent back verbatim.
	AllowedOrigins []string
	AllowedMethods string
	AllowedHeaders string
	// PreflightStatus is written for OPTIONS preflight requests. Defaults to 200.
	PreflightStatus int
}

// CORS provides a simple allowlist-based CORS middleware.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range opts.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		allow[origin] = struct{}{}
	}

	allowedMethods := opts.AllowedMethods
	if allowedMethods == "" {
		allowedMethods = "POST, OPTIONS"
	}
	allowedHeaders := opts.AllowedHeaders
	if allowedHeaders == "" {
		allowedHeaders = "Content-Type"
	}
	preflightStatus := opts.PreflightStatus
	if preflightStatus == 0 {
		preflightStatus = http.StatusOK
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			switch {
			case allowAny:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && isAllowedOrigin(allow, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			if w.Header().Get("Access-Control-Allow-Origin") != "" {
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(preflightStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAllowedOrigin(allow map[string]struct{}, origin string) bool {
	_, ok := allow[origin]
	return ok
}
