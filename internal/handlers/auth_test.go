package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99-66/simple-auth-jwt/internal/auth"
	"github.com/99-66/simple-auth-jwt/internal/config"
	"github.com/99-66/simple-auth-jwt/internal/crypto"
	"github.com/99-66/simple-auth-jwt/internal/metrics"
	"github.com/99-66/simple-auth-jwt/internal/middleware"
	"github.com/99-66/simple-auth-jwt/internal/services"
	"github.com/99-66/simple-auth-jwt/internal/store"
	"github.com/99-66/simple-auth-jwt/internal/token"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "s3cret-pass"
)

// setupRouter wires a full router against an in-memory database and
// registers one test user.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:              "test-jwt-secret",
		AESSecret:              "test-aes-secret",
		HMACSecret:             "test-hmac-secret",
		AccessTokenExpiration:  10 * time.Minute,
		RefreshTokenExpiration: 168 * time.Hour,
	}

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	cipher, err := crypto.NewCipher(cfg.AESSecret)
	require.NoError(t, err)
	digest := crypto.NewDigest(cfg.HMACSecret)
	issuer := token.NewIssuer(cfg)
	verifier := token.NewVerifier(cfg)
	provider := auth.NewLocalProvider()
	recorder := metrics.NewNoopMetrics()

	sessionService := services.NewSessionService(s, cfg, issuer, cipher, digest, provider)
	userService := services.NewUserService(s, cfg, cipher, digest)

	_, err = userService.Register(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	authHandler := NewAuthHandler(sessionService, verifier, cfg, recorder)
	userHandler := NewUserHandler(userService)

	r := gin.New()
	v1 := r.Group("/v1")
	authAPI := v1.Group("/auth/api")
	{
		authAPI.POST("/login", authHandler.APILogin)
		authAPI.POST("/logout", authHandler.APILogout)
		authAPI.POST("/token/refresh", authHandler.APIRefresh)
	}
	authWeb := v1.Group("/auth/web")
	{
		authWeb.POST("/login", authHandler.WebLogin)
		authWeb.POST("/logout", authHandler.WebLogout)
		authWeb.POST("/token/refresh", authHandler.WebRefresh)
	}
	users := v1.Group("/users")
	users.Use(middleware.RequireAuth(verifier, recorder))
	{
		users.GET("/me", userHandler.Me)
	}
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(
		context.Background(), http.MethodPost, path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// apiLogin logs in via the API flow and returns the decoded token response.
func apiLogin(t *testing.T, r *gin.Engine) tokenResponse {
	t.Helper()
	w := postJSON(t, r, "/v1/auth/api/login", gin.H{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	return resp
}

// webLogin logs in via the web flow and returns the token cookies.
func webLogin(t *testing.T, r *gin.Engine) []*http.Cookie {
	t.Helper()
	w := postJSON(t, r, "/v1/auth/web/login", gin.H{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	return cookies
}

func TestAPILogin(t *testing.T) {
	r := setupRouter(t)

	resp := apiLogin(t, r)
	assert.NotZero(t, resp.IssuedAt)
	assert.Greater(t, resp.AccessTokenExpiresIn, resp.IssuedAt)
	assert.Greater(t, resp.RefreshTokenExpiresIn, resp.AccessTokenExpiresIn)
}

func TestAPILoginBadCredentials(t *testing.T) {
	r := setupRouter(t)

	w := postJSON(t, r, "/v1/auth/api/login", gin.H{
		"email":    testEmail,
		"password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect email or password")
}

func TestAPILoginMissingFields(t *testing.T) {
	r := setupRouter(t)

	w := postJSON(t, r, "/v1/auth/api/login", gin.H{"email": testEmail})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebLoginSetsCookies(t *testing.T) {
	r := setupRouter(t)

	cookies := webLogin(t, r)

	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	for _, name := range []string{CookieAccessToken, CookieRefreshToken} {
		c, ok := byName[name]
		require.True(t, ok, "missing cookie %s", name)
		assert.True(t, c.HttpOnly, "%s must be httpOnly", name)
		assert.NotEmpty(t, c.Value)
		assert.Positive(t, c.MaxAge)
	}
	// Refresh cookie outlives the access cookie
	assert.Greater(t, byName[CookieRefreshToken].MaxAge, byName[CookieAccessToken].MaxAge)
}

func TestWebLoginBodyOmitsTokens(t *testing.T) {
	r := setupRouter(t)

	w := postJSON(t, r, "/v1/auth/web/login", gin.H{
		"email":    testEmail,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "login success")
	assert.NotContains(t, w.Body.String(), "access_token")
}

func TestAPILogout(t *testing.T) {
	r := setupRouter(t)
	resp := apiLogin(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/api/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Logging out again with the same token: the record is gone.
	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/api/logout", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPILogoutMissingBearer(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/api/logout", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebLogoutClearsCookies(t *testing.T) {
	r := setupRouter(t)
	cookies := webLogin(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/web/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Both cookies come back expired
	cleared := w.Result().Cookies()
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestWebLogoutWithoutCookies(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/web/logout", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIRefresh(t *testing.T) {
	r := setupRouter(t)
	resp := apiLogin(t, r)

	w := postJSON(t, r, "/v1/auth/api/token/refresh", gin.H{
		"access_token":  resp.AccessToken,
		"refresh_token": resp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var rotated tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rotated))
	assert.NotEqual(t, resp.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	// The consumed pair no longer refreshes
	w = postJSON(t, r, "/v1/auth/api/token/refresh", gin.H{
		"access_token":  resp.AccessToken,
		"refresh_token": resp.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The rotated pair does
	w = postJSON(t, r, "/v1/auth/api/token/refresh", gin.H{
		"access_token":  rotated.AccessToken,
		"refresh_token": rotated.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRefreshMismatchedPair(t *testing.T) {
	r := setupRouter(t)
	first := apiLogin(t, r)
	second := apiLogin(t, r)

	// Cross-pairing two sessions' tokens must not refresh either.
	w := postJSON(t, r, "/v1/auth/api/token/refresh", gin.H{
		"access_token":  first.AccessToken,
		"refresh_token": second.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "could not validate credentials")
}

func TestAPIRefreshMissingBody(t *testing.T) {
	r := setupRouter(t)

	w := postJSON(t, r, "/v1/auth/api/token/refresh", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebRefresh(t *testing.T) {
	r := setupRouter(t)
	cookies := webLogin(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/web/token/refresh", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "refresh success")

	// Fresh cookies are set on the response
	rotated := w.Result().Cookies()
	require.Len(t, rotated, 2)
	oldValues := map[string]string{}
	for _, c := range cookies {
		oldValues[c.Name] = c.Value
	}
	for _, c := range rotated {
		assert.True(t, c.HttpOnly)
		assert.NotEmpty(t, c.Value)
		assert.NotEqual(t, oldValues[c.Name], c.Value)
	}
}

func TestWebRefreshWithoutCookies(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodPost, "/v1/auth/web/token/refresh", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsersMe(t *testing.T) {
	r := setupRouter(t)
	resp := apiLogin(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.NotZero(t, profile.ID)
	assert.Equal(t, testEmail, profile.Email)
}

func TestUsersMeUnauthorized(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(
		context.Background(), http.MethodGet, "/v1/users/me", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequestWithContext(
		context.Background(), http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
