package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/99-66/simple-auth-jwt/internal/middleware"
	"github.com/99-66/simple-auth-jwt/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(us *services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// Me handles GET /v1/users/me. It relies on middleware.RequireAuth to have
// verified the bearer token and stored the token user in the context.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.TokenUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "could not validate credentials"})
		return
	}

	userID, err := user.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "could not validate credentials"})
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		log.Printf("[User] Profile lookup failed user=%d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to select data"})
		return
	}

	c.JSON(http.StatusOK, profile)
}
