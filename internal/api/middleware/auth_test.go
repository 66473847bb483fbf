package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestAuth(t *testing.T, password string) *AuthMiddleware {
	t.Helper()
	cfg := AuthConfig{JWTSecret: "secret", TokenDuration: time.Hour}
	if password != "" {
		hash, err := HashPassword(password)
		require.NoError(t, err)
		cfg.AdminPasswordHash = hash
	}
	a, err := NewAuthMiddleware(cfg, quiet)
	require.NoError(t, err)
	return a
}

func newTestRouter(a *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", a.LoginHandler)
	r.GET("/status", a.StatusHandler)
	r.GET("/secret", a.RequireAuth(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestNewAuthMiddlewareRejectsBadHash(t *testing.T) {
	_, err := NewAuthMiddleware(AuthConfig{AdminPasswordHash: "plaintext"}, quiet)
	assert.Error(t, err)
}

func TestLoginSetsCookie(t *testing.T) {
	r := newTestRouter(newTestAuth(t, "pw"))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password": "pw"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)

	req = httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"authenticated": true, "login_enabled": true}`, w.Body.String())
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	r := newTestRouter(newTestAuth(t, ""))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password": "anything"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.JSONEq(t, `{"authenticated": false, "login_enabled": false}`, w.Body.String())
}

func TestRequireAuthRejectsForeignTokens(t *testing.T) {
	a := newTestAuth(t, "pw")
	r := newTestRouter(a)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Authenticated: true,
	})
	foreign, err := other.SignedString([]byte("secret"))
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Authenticated: true,
	})
	stale, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{"issuer": foreign, "expired": stale, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secret", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	token, err := a.generateToken()
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
