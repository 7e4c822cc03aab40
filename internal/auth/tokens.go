package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/knowledgebase/kb-backend/internal/config"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// Claims is the signed payload of an access token: identity plus role, so
// downstream handlers never need a database round trip to authorize.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenService issues and verifies the three kinds of credentials in the
// system: signed short-lived access tokens, and opaque high-entropy bearer
// strings for refresh / reset / verification (same primitive, different
// expiry policy held by the caller).
type TokenService struct {
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewTokenService(cfg config.Config) *TokenService {
	return &TokenService{
		secret:          []byte(cfg.JWTSecret),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

// IssueAccessToken signs an HS256 token carrying {userID, email, role}.
func (ts *TokenService) IssueAccessToken(userID, email string, role Role) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTokenTTL)),
		},
		Email: email,
		Role:  string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// VerifyAccessToken fails closed: any signature mismatch, malformed token,
// unexpected algorithm, expired claim or unknown role yields
// ErrInvalidAccessToken, never a partial identity.
func (ts *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidAccessToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}
	if _, err := ParseRole(claims.Role); err != nil {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// RefreshTokenExpiry returns the expiry for a session created or rotated now.
func (ts *TokenService) RefreshTokenExpiry() time.Time {
	return time.Now().Add(ts.refreshTokenTTL)
}

// NewRefreshToken returns an opaque 256-bit bearer token. It carries no
// claims; validity comes entirely from the sessions table.
func (ts *TokenService) NewRefreshToken() (string, error) {
	return randomToken()
}

// NewSecureToken generates password-reset and email-verification tokens.
// Same primitive as refresh tokens; the caller applies its own expiry policy.
func (ts *TokenService) NewSecureToken() (string, error) {
	return randomToken()
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
