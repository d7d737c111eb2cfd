package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/99-66/simple-auth-jwt/internal/config"
	"github.com/99-66/simple-auth-jwt/internal/metrics"
	"github.com/99-66/simple-auth-jwt/internal/services"
	"github.com/99-66/simple-auth-jwt/internal/token"
)

// Cookie names for the web flows
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

type loginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	AccessToken  string `json:"access_token"  binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	IssuedAt              int64  `json:"iat"`
	AccessTokenExpiresIn  int64  `json:"access_token_expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

func newTokenResponse(pair *token.Pair) tokenResponse {
	return tokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		IssuedAt:              pair.IssuedAt.Unix(),
		AccessTokenExpiresIn:  pair.AccessExpiresAt.Unix(),
		RefreshTokenExpiresIn: pair.RefreshExpiresAt.Unix(),
	}
}

// AuthHandler serves the login/logout/refresh flows on both transports: JSON
// bodies with bearer headers for API clients, httpOnly cookie pairs for
// browsers. Each route selects its verification policy explicitly.
type AuthHandler struct {
	sessionService *services.SessionService
	verifier       *token.Verifier
	config         *config.Config
	metrics        metrics.Recorder
}

func NewAuthHandler(
	ss *services.SessionService,
	v *token.Verifier,
	cfg *config.Config,
	m metrics.Recorder,
) *AuthHandler {
	return &AuthHandler{
		sessionService: ss,
		verifier:       v,
		config:         cfg,
		metrics:        m,
	}
}

// APILogin handles POST /v1/auth/api/login
func (h *AuthHandler) APILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	pair, err := h.sessionService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.metrics.RecordLogin("api", false)
		h.loginError(c, err)
		return
	}

	h.metrics.RecordLogin("api", true)
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// WebLogin handles POST /v1/auth/web/login
func (h *AuthHandler) WebLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	pair, err := h.sessionService.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.metrics.RecordLogin("web", false)
		h.loginError(c, err)
		return
	}

	h.metrics.RecordLogin("web", true)
	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"message": "login success"})
}

// APILogout handles POST /v1/auth/api/logout
func (h *AuthHandler) APILogout(c *gin.Context) {
	user, err := h.verifyBearer(c)
	if err != nil {
		h.metrics.RecordLogout("api", "invalid")
		h.verificationError(c, err)
		return
	}

	if err := h.sessionService.Logout(c.Request.Context(), user); err != nil {
		h.logoutError(c, "api", err)
		return
	}

	h.metrics.RecordLogout("api", "success")
	c.JSON(http.StatusOK, gin.H{"message": "logout success"})
}

// WebLogout handles POST /v1/auth/web/logout
func (h *AuthHandler) WebLogout(c *gin.Context) {
	access, _ := c.Cookie(CookieAccessToken)
	refresh, _ := c.Cookie(CookieRefreshToken)

	user, err := h.verifier.Verify(token.StrictCookiePair, access, refresh)
	if err != nil {
		h.metrics.RecordLogout("web", "invalid")
		h.verificationError(c, err)
		return
	}

	if err := h.sessionService.Logout(c.Request.Context(), user); err != nil {
		h.logoutError(c, "web", err)
		return
	}

	h.metrics.RecordLogout("web", "success")
	h.clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "logout success"})
}

// APIRefresh handles POST /v1/auth/api/token/refresh
func (h *AuthHandler) APIRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordTokenRefresh("api", false)
		c.JSON(http.StatusUnauthorized, gin.H{"message": token.ErrCredentialsInvalid.Error()})
		return
	}

	user, err := h.verifier.Verify(token.LenientBody, req.AccessToken, req.RefreshToken)
	if err != nil {
		h.metrics.RecordTokenRefresh("api", false)
		h.verificationError(c, err)
		return
	}

	pair, err := h.sessionService.Refresh(c.Request.Context(), user)
	if err != nil {
		h.metrics.RecordTokenRefresh("api", false)
		h.refreshError(c, err)
		return
	}

	h.metrics.RecordTokenRefresh("api", true)
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

// WebRefresh handles POST /v1/auth/web/token/refresh
func (h *AuthHandler) WebRefresh(c *gin.Context) {
	access, _ := c.Cookie(CookieAccessToken)
	refresh, _ := c.Cookie(CookieRefreshToken)

	user, err := h.verifier.Verify(token.LenientCookiePair, access, refresh)
	if err != nil {
		h.metrics.RecordTokenRefresh("web", false)
		h.verificationError(c, err)
		return
	}

	pair, err := h.sessionService.Refresh(c.Request.Context(), user)
	if err != nil {
		h.metrics.RecordTokenRefresh("web", false)
		h.refreshError(c, err)
		return
	}

	h.metrics.RecordTokenRefresh("web", true)
	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"message": "refresh success"})
}

func (h *AuthHandler) verifyBearer(c *gin.Context) (*token.TokenUser, error) {
	bearer, err := token.BearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return nil, err
	}
	return h.verifier.Verify(token.StrictBearer, bearer, "")
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, pair *token.Pair) {
	accessMaxAge := int(h.config.AccessTokenExpiration.Seconds())
	refreshMaxAge := int(h.config.RefreshTokenExpiration.Seconds())
	c.SetCookie(CookieAccessToken, pair.AccessToken, accessMaxAge, "/",
		h.config.CookieDomain, h.config.CookieSecure, true)
	c.SetCookie(CookieRefreshToken, pair.RefreshToken, refreshMaxAge, "/",
		h.config.CookieDomain, h.config.CookieSecure, true)
}

func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	c.SetCookie(CookieAccessToken, "", -1, "/",
		h.config.CookieDomain, h.config.CookieSecure, true)
	c.SetCookie(CookieRefreshToken, "", -1, "/",
		h.config.CookieDomain, h.config.CookieSecure, true)
}

func (h *AuthHandler) loginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Incorrect email or password."})
	default:
		log.Printf("[Auth] Login failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to select/insert data"})
	}
}

// verificationError maps verifier outcomes. Expired tokens get a distinct
// body so clients know to refresh instead of re-login.
func (h *AuthHandler) verificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"message": token.ErrTokenExpired.Error()})
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"message": token.ErrCredentialsInvalid.Error()})
	}
}

func (h *AuthHandler) logoutError(c *gin.Context, flow string, err error) {
	switch {
	case errors.Is(err, services.ErrTokenNotFound):
		h.metrics.RecordLogout(flow, "not_found")
		c.JSON(http.StatusNotFound, gin.H{"message": services.ErrTokenNotFound.Error()})
	case errors.Is(err, token.ErrCredentialsInvalid):
		h.metrics.RecordLogout(flow, "invalid")
		c.JSON(http.StatusUnauthorized, gin.H{"message": token.ErrCredentialsInvalid.Error()})
	default:
		h.metrics.RecordLogout(flow, "error")
		log.Printf("[Auth] Logout failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete data"})
	}
}

func (h *AuthHandler) refreshError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, token.ErrCredentialsInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"message": token.ErrCredentialsInvalid.Error()})
	default:
		log.Printf("[Auth] Refresh failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Token update failed"})
	}
}
