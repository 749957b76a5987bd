package middleware

import (
	"net/http"
	"time"

	"paynow-terminal-gateway/internal/core/ports"
	"paynow-terminal-gateway/pkg/apperror"
	"paynow-terminal-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderDeviceKey carries the terminal display's provisioning secret.
	HeaderDeviceKey = "X-Terminal-Device-Key"

	// Context keys
	CtxOperatorSubject = "operator_subject"
	CtxTerminalKey     = "terminal"
)

// JWTAuth creates a middleware that validates operator JWT tokens.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		tokenStr := authHeader[7:]
		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxOperatorSubject, claims.Subject)
		c.Next()
	}
}

// DeviceKeyAuth creates a middleware that authenticates a terminal display
// against its provisioned device key. The terminal id comes from the :id
// path parameter; the verified terminal is stored in the context.
func DeviceKeyAuth(terminalRepo ports.TerminalRepository, keySvc ports.DeviceKeyService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceKey := c.GetHeader(HeaderDeviceKey)
		if deviceKey == "" {
			response.Error(c, apperror.ErrInvalidDeviceKey())
			c.Abort()
			return
		}

		terminalID := c.Param("id")
		terminal, err := terminalRepo.GetByID(c.Request.Context(), terminalID)
		if err != nil {
			log.Error().Err(err).Str("terminal_id", terminalID).Msg("failed to fetch terminal")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if terminal == nil {
			// Unknown terminal and bad key are indistinguishable to the caller.
			response.Error(c, apperror.ErrInvalidDeviceKey())
			c.Abort()
			return
		}

		ok, err := keySvc.Verify(deviceKey, terminal.DeviceKeyHash)
		if err != nil {
			log.Error().Err(err).Str("terminal_id", terminalID).Msg("device key verification failed")
			response.Error(c, apperror.InternalError(err))
			c.Abort()
			return
		}
		if !ok {
			response.Error(c, apperror.ErrInvalidDeviceKey())
			c.Abort()
			return
		}

		c.Set(CtxTerminalKey, terminal)
		c.Next()
	}
}

// MaxBodySize limits the request body to n bytes.
func MaxBodySize(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
