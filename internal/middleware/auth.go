package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/99-66/simple-auth-jwt/internal/metrics"
	"github.com/99-66/simple-auth-jwt/internal/token"
)

const contextTokenUser = "token_user"

// TokenUserFromContext returns the verified token user set by RequireAuth.
func TokenUserFromContext(c *gin.Context) (*token.TokenUser, bool) {
	v, exists := c.Get(contextTokenUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*token.TokenUser)
	return user, ok
}

// RequireAuth guards routes with a strict bearer-token check. An expired
// token gets a distinct message so the client knows to refresh rather than
// re-authenticate.
func RequireAuth(v *token.Verifier, m metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer, err := token.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			m.RecordTokenVerification(token.StrictBearer.String(), "invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"message": token.ErrCredentialsInvalid.Error()})
			return
		}

		user, err := v.Verify(token.StrictBearer, bearer, "")
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				m.RecordTokenVerification(token.StrictBearer.String(), "expired")
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					gin.H{"message": token.ErrTokenExpired.Error()})
				return
			}
			m.RecordTokenVerification(token.StrictBearer.String(), "invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"message": token.ErrCredentialsInvalid.Error()})
			return
		}

		m.RecordTokenVerification(token.StrictBearer.String(), "verified")
		c.Set(contextTokenUser, user)
		c.Next()
	}
}
