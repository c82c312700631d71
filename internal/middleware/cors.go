package middleware

import (
	"net/http"
	"strings"
)

const defaultAllowHeaders = "Content-Type, Authorization, X-Requested-With, X-Request-ID"

// CORS allows credentialed cross-origin requests from the listed origins only.
// A "*" entry allows any origin by echoing it back. Preflights get back
// whatever headers they ask for.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	allowAll := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
			continue
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")
			_, ok := allowed[origin]
			if origin != "" && (ok || allowAll) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				allowHeaders := r.Header.Get("Access-Control-Request-Headers")
				if strings.TrimSpace(allowHeaders) == "" {
					allowHeaders = defaultAllowHeaders
				} else {
					w.Header().Add("Vary", "Access-Control-Request-Headers")
				}
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				// Preflight request: reply with 204 No Content
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
