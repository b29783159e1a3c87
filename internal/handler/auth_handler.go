package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/catalog_sync/internal/service"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

// Authenticator exchanges operator credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// LoginRequest is the body of POST /v1/admin/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /v1/admin/auth/login. Failures answer 401 so the login
// throttle can count them; inactive accounts answer 403.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required")
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrAccountInactive):
		utils.Error(c, http.StatusForbidden, "ACCOUNT_INACTIVE", "Account is inactive")
		return
	case err != nil:
		utils.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	utils.Success(c, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"tokenType": "Bearer",
	})
}
