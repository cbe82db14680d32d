package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthServiceSignupAndLogin(t *testing.T) {
	repo := newTestRepository(t)
	auth := newTestAuth(repo)
	ctx := context.Background()

	signup, err := auth.Signup(ctx, "  Candidate@Example.com ", "correct-horse", "Candidate")
	require.NoError(t, err)
	assert.Equal(t, "candidate@example.com", signup.User.Email)
	assert.NotEmpty(t, signup.AccessToken)
	assert.NotEmpty(t, signup.RefreshToken)
	assert.NotEmpty(t, signup.PermanentToken)

	_, err = auth.Signup(ctx, "candidate@example.com", "another-pass", "")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = auth.Login(ctx, "candidate@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := auth.Login(ctx, "CANDIDATE@example.com", "correct-horse")
	require.NoError(t, err)

	user, err := auth.VerifyAccessToken(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, user.ID)

	refreshed, err := auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)

	require.NoError(t, auth.Logout(ctx, user.ID))
	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = auth.VerifyPermanentToken(ctx, login.PermanentToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsForeignTokens(t *testing.T) {
	repo := newTestRepository(t)
	auth := newTestAuth(repo)
	user := createUser(t, repo, "jwt@example.com")

	sign := func(method jwt.SigningMethod, key any, expires time.Time) string {
		claims := &CookieClaims{
			UserID:           user.ID,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
		}
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not-a-jwt"},
		{"Wrong secret", sign(jwt.SigningMethodHS256, []byte("other-secret"), time.Now().Add(time.Hour))},
		{"Expired", sign(jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(-time.Minute))},
		{"Unexpected algorithm", sign(jwt.SigningMethodHS512, []byte(testSecret), time.Now().Add(time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.VerifyAccessToken(context.Background(), tt.token)
			assert.Error(t, err)
		})
	}

	valid := sign(jwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(time.Hour))
	got, err := auth.VerifyAccessToken(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		expected string
	}{
		{"Query parameter", func(r *http.Request) {
			r.URL.RawQuery = "token=from-query"
			r.AddCookie(&http.Cookie{Name: accessCookie, Value: "from-cookie"})
		}, "from-query"},
		{"Cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: accessCookie, Value: "from-cookie"})
			r.Header.Set("Authorization", "Bearer from-header")
		}, "from-cookie"},
		{"Bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "bearer from-header")
		}, "from-header"},
		{"Nothing", func(r *http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.expected, TokenFromRequest(req))
		})
	}
}

func TestMiddleware(t *testing.T) {
	repo := newTestRepository(t)
	auth := newTestAuth(repo)
	ctx := context.Background()

	resp, err := auth.Signup(ctx, "mw@example.com", "password123", "")
	require.NoError(t, err)

	protected := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(user.Email))
	}))

	t.Run("Bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "mw@example.com", rec.Body.String())
	})

	t.Run("Refresh cookie renews access", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: accessCookie, Value: "stale"})
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: resp.RefreshToken})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var renewed bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == accessCookie && c.Value != "" {
				renewed = true
			}
		}
		assert.True(t, renewed)
	})

	t.Run("Permanent cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: permanentCookie, Value: resp.PermanentToken})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
