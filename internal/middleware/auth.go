package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/soaringjerry/SurveyForge/internal/services"
)

type authCtxKey int

const authKey authCtxKey = 7

// DefaultTokenTTL is the bearer token lifetime when none is configured.
const DefaultTokenTTL = 60 * time.Minute

// TokenService signs and verifies HS256 bearer tokens. The secret is fixed at
// construction; rotating it invalidates every outstanding token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(username string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns the token's subject. Every failure is the same Unauthenticated error.
func (s *TokenService) Verify(tok string) (string, error) {
	invalid := services.NewUnauthorizedError("Invalid token")
	t, err := jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", invalid
	}
	c, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok || !t.Valid || strings.TrimSpace(c.Subject) == "" {
		return "", invalid
	}
	return c.Subject, nil
}

// AuthGateway resolves the acting username for protected routes.
type AuthGateway struct {
	tokens *TokenService
}

func NewAuthGateway(tokens *TokenService) *AuthGateway {
	return &AuthGateway{tokens: tokens}
}

// Require rejects the request with 401 before next runs unless a valid bearer
// token is present; on success the username is bound to the request context.
func (g *AuthGateway) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}
		username, err := g.tokens.Verify(tok)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}

func bearerToken(h string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, authKey, username)
}

// Username returns the identity bound by Require.
func Username(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(authKey).(string)
	return u, ok && u != ""
}
