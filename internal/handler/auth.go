package handler

import (
	"net/http"

	"github.com/edcadet10/tikes/internal/apierror"
	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Login authenticates an employee by phone + PIN and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Invalid credentials"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Revoke denylists a token id (device deactivation, lost device).
func (h *AuthHandler) Revoke(c *gin.Context) {
	var req dto.RevokeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Revoke(c.Request.Context(), req.TokenID); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to revoke token"))
		return
	}
	c.Status(http.StatusNoContent)
}
