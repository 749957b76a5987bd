package handler

import (
	"crypto/subtle"
	"net/http"

	"paynow-terminal-gateway/internal/adapter/http/dto"
	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/pkg/apperror"
	"paynow-terminal-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles the operator token exchange.
type AuthHandler struct {
	tokenSvc  ports.TokenService
	accessKey string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokenSvc ports.TokenService, accessKey string) *AuthHandler {
	return &AuthHandler{tokenSvc: tokenSvc, accessKey: accessKey}
}

// Token handles POST /api/v1/auth/token. POS operator software exchanges
// its shared access key for a short-lived JWT.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if h.accessKey == "" ||
		subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(h.accessKey)) != 1 {
		response.Error(c, apperror.ErrInvalidOperatorKey())
		return
	}

	token, expiry, err := h.tokenSvc.Generate(req.OperatorID)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	response.OK(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
