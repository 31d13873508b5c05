package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"prepsnap-quiz/internal/domain"
)

// Provider supplies the bearer token for calls to the quiz service.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider serves one configured token. It reports the session as
// missing when the token is empty or is a JWT whose exp has passed.
type StaticProvider struct {
	token string
	now   func() time.Time
}

func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{
		token: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")),
		now:   time.Now,
	}
}

func (p *StaticProvider) Token(_ context.Context) (string, error) {
	if p.token == "" {
		return "", domain.ErrAuthenticationMissing
	}
	if exp, ok := expiry(p.token); ok && !exp.After(p.now()) {
		return "", fmt.Errorf("%w: token expired at %s", domain.ErrAuthenticationMissing, exp.UTC().Format(time.RFC3339))
	}
	return p.token, nil
}

// expiry reads exp without verifying the signature; only the issuer can verify.
// Opaque tokens report ok=false.
func expiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
