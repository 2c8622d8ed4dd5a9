package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	errMissingAuth  = errors.New("missing authorization")
	errInvalidToken = errors.New("invalid token")
	errRateLimited  = errors.New("write rate limit exceeded")
)

// corsMiddleware reflects allowed origins and answers preflight requests.
func corsMiddleware(next http.Handler, allowed []string) http.Handler {
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(origin, allowed) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		} else if origin != "" {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			http.Error(w, "CORS origin not allowed", http.StatusForbidden)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if c := strings.TrimSpace(candidate); c != "" && (c == "*" || c == origin) {
			return true
		}
	}
	return false
}

// authMiddleware requires a bearer token from the configured set. Health and
// metrics stay open for probes and scrapers.
func authMiddleware(next http.Handler, tokens []string) http.Handler {
	accepted := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			accepted[t] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, errMissingAuth)
			return
		}
		if _, found := accepted[token]; !found {
			writeError(w, http.StatusUnauthorized, errInvalidToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeLimitMiddleware throttles mutating requests behind a shared token
// bucket. Reads pass through untouched.
func writeLimitMiddleware(next http.Handler, rps float64, burst int) http.Handler {
	if burst <= 0 {
		burst = int(rps) + 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, errRateLimited)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// auditMiddleware records every request after it completes.
func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			Actor:      actorFromPath(r.URL.Path),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

// actorFromPath pulls the account segment out of /accounts/{addr}/... paths.
func actorFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/accounts/")
	if !ok {
		return ""
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so websocket upgrades keep working behind the
// recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hj.Hijack()
}
