package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	service services.AuthService
}

func NewAuthHandler(service services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Login exchanges credentials for a scope token
// @Summary Log in to a scope
// @Tags auth
// @Accept json
// @Produce json
// @Param scope path string true "enrollment, quizzer or test-taker"
// @Param request body services.LoginRequest true "Credentials"
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Assessment already attempted"
// @Router /auth/login/{scope} [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	scope := models.Scope(c.Param("scope"))
	h.LogRequest(c, "Login attempt", "scope", scope)

	response, err := h.service.Login(c.Request.Context(), scope, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SSOLogin exchanges a Casdoor access token for an admin scope token
// @Summary Log in with single sign-on
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.SSOLoginRequest true "SSO token and scope"
// @Success 200 {object} services.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse "SSO not configured"
// @Router /auth/sso [post]
func (h *AuthHandler) SSOLogin(c *gin.Context) {
	var req services.SSOLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	response, err := h.service.SSOLogin(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
