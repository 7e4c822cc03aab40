package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/knowledgebase/kb-backend/internal/config"
)

func testTokenService(ttl time.Duration) *TokenService {
	cfg := config.Defaults()
	cfg.JWTSecret = "test-secret"
	cfg.AccessTokenTTL = ttl
	return NewTokenService(cfg)
}

// TestAccessTokenRoundTrip verifies that a freshly issued access token
// verifies and carries the identity it was issued for.
func TestAccessTokenRoundTrip(t *testing.T) {
	ts := testTokenService(time.Minute)

	token, err := ts.IssueAccessToken("user-1", "alice@example.com", RoleEditor)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims, err := ts.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected email alice@example.com, got %q", claims.Email)
	}
	if claims.Role != string(RoleEditor) {
		t.Errorf("expected role EDITOR, got %q", claims.Role)
	}
}

// TestExpiredAccessTokenRejected verifies tokens past their expiry claim fail
// closed.
func TestExpiredAccessTokenRejected(t *testing.T) {
	ts := testTokenService(-1 * time.Minute) // already expired at issue time

	token, err := ts.IssueAccessToken("user-1", "alice@example.com", RoleViewer)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	if _, err := ts.VerifyAccessToken(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

// TestTamperedAccessTokenRejected flips a byte of the signature and expects
// rejection.
func TestTamperedAccessTokenRejected(t *testing.T) {
	ts := testTokenService(time.Minute)

	token, err := ts.IssueAccessToken("user-1", "alice@example.com", RoleViewer)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := ts.VerifyAccessToken(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

// TestWrongSecretRejected verifies a token signed under a different secret is
// invalid here.
func TestWrongSecretRejected(t *testing.T) {
	other := testTokenService(time.Minute)
	other.secret = []byte("some-other-secret")

	token, err := other.IssueAccessToken("user-1", "alice@example.com", RoleViewer)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	ts := testTokenService(time.Minute)
	if _, err := ts.VerifyAccessToken(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}
}

// TestMalformedAccessTokenRejected feeds garbage strings to the verifier.
func TestMalformedAccessTokenRejected(t *testing.T) {
	ts := testTokenService(time.Minute)

	for _, bad := range []string{"", "not-a-jwt", "a.b.c", strings.Repeat("x", 500)} {
		if _, err := ts.VerifyAccessToken(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

// TestUnknownRoleClaimRejected verifies a structurally valid token carrying a
// role outside the closed enumeration does not authenticate.
func TestUnknownRoleClaimRejected(t *testing.T) {
	ts := testTokenService(time.Minute)

	token, err := ts.IssueAccessToken("user-1", "alice@example.com", Role("SUPERUSER"))
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := ts.VerifyAccessToken(token); err == nil {
		t.Fatal("expected unknown role claim to be rejected")
	}
}

// TestOpaqueTokensAreUnique issues a batch of refresh tokens and checks for
// collisions and adequate length.
func TestOpaqueTokensAreUnique(t *testing.T) {
	ts := testTokenService(time.Minute)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := ts.NewRefreshToken()
		if err != nil {
			t.Fatalf("NewRefreshToken: %v", err)
		}
		if len(token) < 40 {
			t.Fatalf("token too short: %d chars", len(token))
		}
		if _, dup := seen[token]; dup {
			t.Fatal("duplicate refresh token generated")
		}
		seen[token] = struct{}{}
	}
}
