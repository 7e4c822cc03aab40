package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/knowledgebase/kb-backend/internal/httputil"
	"github.com/knowledgebase/kb-backend/internal/utils"
	"golang.org/x/time/rate"
)

// TokenVerifier turns a bearer access token into an Identity. The auth module
// provides the implementation; keeping an interface here means middleware
// tests need no signing secret or database.
type TokenVerifier interface {
	VerifyBearer(token string) (utils.Identity, error)
}

// AuthMiddleware authenticates requests via the Authorization header and
// attaches the caller's identity to the context. Missing or invalid tokens
// get a uniform 401 regardless of which check failed.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "missing or invalid authorization header")
				return
			}

			identity, err := verifier.VerifyBearer(token)
			if err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "invalid or expired access token")
				return
			}

			ctx := utils.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects with 403 unless the attached identity's role is in the
// allowed set. Must run after AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := utils.GetIdentityFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "missing identity in context")
				return
			}
			if _, ok := allowed[identity.Role]; !ok {
				httputil.WriteError(w, http.StatusForbidden, httputil.CodeForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	// Idle limiter entries are dropped so the per-IP map cannot grow
	// unbounded over the process lifetime.
	limiterIdleTTL    = 1 * time.Hour
	limiterSweepEvery = 1 * time.Minute
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newIPRateLimiter(rps rate.Limit, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		rps:       rps,
		burst:     burst,
		entries:   make(map[string]*limiterEntry),
		lastSweep: time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		for key, e := range l.entries {
			if now.Sub(e.lastSeen) >= limiterIdleTTL {
				delete(l.entries, key)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.lim.Allow()
}

// RateLimit applies a per-client-IP token bucket. Used on the
// credential-guessing surfaces (login, forgot-password).
func RateLimit(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := newIPRateLimiter(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(ClientIP(r)) {
				httputil.WriteError(w, http.StatusTooManyRequests, httputil.CodeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers X-Forwarded-For (first hop) since the server runs behind a
// proxy in production.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

var allowedOrigins = map[string]struct{}{
	"http://localhost:5173":          {},
	"http://localhost:5174":          {},
	"https://kb.internal.example.io": {},
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Echo the origin back only if it's on our allow-list
		if _, ok := allowedOrigins[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin") // important for caches
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods",
				"GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
