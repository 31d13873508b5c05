package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prepsnap-quiz/internal/domain"
)

func TestStaticProvider(t *testing.T) {
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	issuer := NewIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return now }
	token, err := issuer.Mint("learner-1")
	require.NoError(t, err)

	tests := map[string]struct {
		token   string
		at      time.Time
		wantErr bool
	}{
		"empty token is a missing session":   {token: "", at: now, wantErr: true},
		"opaque token is passed through":     {token: "opaque-token", at: now},
		"bearer prefix is stripped":          {token: "Bearer " + token, at: now},
		"unexpired jwt is passed through":    {token: token, at: now.Add(30 * time.Minute)},
		"expired jwt is a missing session":   {token: token, at: now.Add(2 * time.Hour), wantErr: true},
		"whitespace-only is a missing token": {token: "   ", at: now, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := NewStaticProvider(tt.token)
			p.now = func() time.Time { return tt.at }

			got, err := p.Token(context.Background())
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrAuthenticationMissing)
				return
			}
			require.NoError(t, err)
			require.NotContains(t, got, "Bearer")
		})
	}
}

func TestIssuerVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Mint("learner-1")
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "learner-1", subject)

	_, err = NewIssuer("other", time.Hour).Verify(token)
	require.Error(t, err, "foreign secret must not verify")

	_, err = issuer.Mint("")
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Mint("learner-1")
	require.NoError(t, err)

	h := issuer.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(subject))
	}))

	req := httptest.NewRequest(http.MethodGet, "/get-quiz-today", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "learner-1", rec.Body.String())
}
