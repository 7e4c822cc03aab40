package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/knowledgebase/kb-backend/internal/utils"
)

// mockVerifier accepts exactly one token string and returns a fixed identity.
type mockVerifier struct {
	accept   string
	identity utils.Identity
}

func (m mockVerifier) VerifyBearer(token string) (utils.Identity, error) {
	if token == m.accept {
		return m.identity, nil
	}
	return utils.Identity{}, errors.New("bad token")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	handler := AuthMiddleware(mockVerifier{accept: "good"})(okHandler())

	req := httptest.NewRequest("GET", "/me", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddlewareWrongScheme(t *testing.T) {
	handler := AuthMiddleware(mockVerifier{accept: "good"})(okHandler())

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	handler := AuthMiddleware(mockVerifier{accept: "good"})(okHandler())

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer evil")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	want := utils.Identity{UserID: "user-1", Email: "alice@example.com", Role: "EDITOR"}
	verifier := mockVerifier{accept: "good", identity: want}

	var got utils.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := utils.GetIdentityFromContext(r.Context())
		if !ok {
			t.Error("identity missing from context")
		}
		got = identity
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	AuthMiddleware(verifier)(inner).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got != want {
		t.Errorf("expected identity %+v, got %+v", want, got)
	}
}

func TestRequireRoleAllows(t *testing.T) {
	handler := RequireRole("EDITOR", "ADMIN")(okHandler())

	req := httptest.NewRequest("POST", "/articles", nil)
	ctx := utils.WithIdentity(req.Context(), utils.Identity{UserID: "u", Role: "EDITOR"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(ctx))

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRequireRoleForbids(t *testing.T) {
	handler := RequireRole("ADMIN")(okHandler())

	req := httptest.NewRequest("POST", "/articles", nil)
	ctx := utils.WithIdentity(req.Context(), utils.Identity{UserID: "u", Role: "VIEWER"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(ctx))

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	handler := RequireRole("ADMIN")(okHandler())

	req := httptest.NewRequest("POST", "/articles", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	handler := RateLimit(1, 3)(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = ip + ":40000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 3; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", code)
	}

	// A different client keeps its own bucket.
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("expected 200 for fresh IP, got %d", code)
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	l := newIPRateLimiter(1, 3)

	if !l.allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if len(l.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(l.entries))
	}

	// Age the entry past the idle TTL and force the next call to sweep.
	l.entries["10.0.0.1"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	l.lastSweep = time.Now().Add(-2 * limiterSweepEvery)

	if !l.allow("10.0.0.2") {
		t.Fatal("fresh client should pass")
	}
	if _, stale := l.entries["10.0.0.1"]; stale {
		t.Error("expected idle entry to be evicted")
	}
	if _, kept := l.entries["10.0.0.2"]; !kept {
		t.Error("expected active entry to survive the sweep")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "192.168.1.10:54321", "", "192.168.1.10"},
		{"forwarded single", "10.0.0.1:1", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain takes first", "10.0.0.1:1", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if got := ClientIP(req); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
