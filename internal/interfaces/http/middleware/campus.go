package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/tuition/internal/infrastructure/logger"
	"github.com/erp/tuition/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampusHeaderKey is the header an operator's client uses to bind requests to a campus
const CampusHeaderKey = "X-Campus-ID"

// CampusMiddlewareConfig holds configuration for the campus middleware
type CampusMiddlewareConfig struct {
	// SkipPaths are paths that never carry a campus (e.g. health check)
	SkipPaths []string
	// Required rejects requests without a campus header
	Required bool
	Logger   *zap.Logger
}

// DefaultCampusConfig returns the default campus middleware configuration.
// Requests without a header are unbound and see every campus.
func DefaultCampusConfig() CampusMiddlewareConfig {
	return CampusMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
		Required:  false,
	}
}

// Campus returns campus middleware with the default configuration
func Campus() gin.HandlerFunc {
	return CampusWithConfig(DefaultCampusConfig())
}

// CampusWithConfig extracts the campus the caller is bound to from the X-Campus-ID header.
// An invalid header is rejected; a missing one leaves the request unbound unless Required.
func CampusWithConfig(cfg CampusMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		raw := strings.TrimSpace(c.GetHeader(CampusHeaderKey))
		if raw == "" {
			if cfg.Required {
				respondInvalidCampus(c, http.StatusForbidden, dto.ErrCodeForbidden, "Campus identification required")
				return
			}
			c.Next()
			return
		}

		campusID, err := uuid.Parse(raw)
		if err != nil || campusID == uuid.Nil {
			respondInvalidCampus(c, http.StatusBadRequest, dto.ErrCodeInvalidCampus, "Invalid campus ID format")
			return
		}

		c.Set(logger.GinCampusIDKey, campusID.String())

		ctx := c.Request.Context()
		ctx, _ = logger.WithCampusID(ctx, logger.FromContext(ctx), campusID.String())
		c.Request = c.Request.WithContext(ctx)

		if cfg.Logger != nil {
			cfg.Logger.Debug("Campus identified", zap.String("campus_id", campusID.String()))
		}

		c.Next()
	}
}

func respondInvalidCampus(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// GetCampusID returns the campus the request is bound to, or uuid.Nil when unbound
func GetCampusID(c *gin.Context) uuid.UUID {
	raw := c.GetString(logger.GinCampusIDKey)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
