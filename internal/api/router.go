package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ecrwatch/internal/config"
	"ecrwatch/internal/logger"
	"ecrwatch/pkg/health"
	"ecrwatch/pkg/middleware"
	"ecrwatch/pkg/ratelimit"
	"ecrwatch/pkg/tracing"
)

// NewRouter assembles the admin API with its middleware chain, the health
// endpoint, the Prometheus handler and the Swagger UI. ctx bounds background
// middleware work.
func NewRouter(ctx context.Context, cfg *config.Config, handler *Handler, checks *health.CheckerRegistry, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(cfg.Tracing.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())

	if cfg.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.FromConfig(cfg.API.RateLimit)
		router.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		log.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	router.GET("/health", func(c *gin.Context) {
		h := checks.Check(c.Request.Context())
		status := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handler.RegisterRoutes(router)
	return router
}
