package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/leaf-health-go/internal/errors"
	"github.com/anime-shed/leaf-health-go/internal/logger"
	"github.com/anime-shed/leaf-health-go/pkg/models"
)

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// cors answers preflight requests and tags responses for allowed origins.
// "*" allows every origin.
func cors(allowed []string) gin.HandlerFunc {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[strings.ToLower(o)] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := set[strings.ToLower(origin)]; ok || allowAll {
				if allowAll {
					c.Header("Access-Control-Allow-Origin", "*")
				} else {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
				}
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func (h *handler) respondTooLarge(c *gin.Context) {
	logger.WithFields(logrus.Fields{
		"path":     c.Request.URL.Path,
		"ip":       c.ClientIP(),
		"max_size": h.Config.MaxRequestBodySizeLabel(),
	}).Warn("Upload rejected: file too large")

	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, models.FileTooLargeResponse{
		Error:   "File too large",
		MaxSize: h.Config.MaxRequestBodySizeLabel(),
	})
}

// respondError writes {error, message?, available_models?}. AppErrors carry
// their own status and user-facing message.
func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	body := models.ErrorResponse{Error: http.StatusText(code)}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.AvailableModels = appErr.AvailableModels
		if appErr.Cause != nil && code < http.StatusInternalServerError {
			body.Message = appErr.Cause.Error()
		}
	}

	fields := logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}
	if code >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(fields).Error("Request failed")
	} else {
		logger.WithError(err).WithFields(fields).Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, body)
}
