package config

import (
	"github.com/anonto42/warbler/pkg/zapadapter"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

const cacheControl = "no-cache, no-store, must-revalidate, public, max-age=0"

// SetupMiddleware installs the ambient middleware shared by every route
func SetupMiddleware(e *echo.Echo, cfg *Config, logger *zap.Logger) {
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(zapadapter.NewContextWithID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("http request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("http request", fields...)
			return nil
		},
	}))
	secure := middleware.DefaultSecureConfig
	if cfg.IsProduction() {
		secure.HSTSMaxAge = 31536000
	}
	e.Use(middleware.SecureWithConfig(secure))
	e.Use(NoCache)
}

// NoCache stops browsers from caching pages that depend on the session
func NoCache(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cacheControl)
		return next(c)
	}
}
