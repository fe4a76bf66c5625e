package api

import (
	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/policychat/internal/api/middleware"
	"github.com/liliang-cn/policychat/internal/api/widget"
	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/liliang-cn/policychat/internal/metrics"
	"github.com/liliang-cn/policychat/internal/session"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	AllowOrigins []string
	Widget       domain.WidgetConfig
	RateLimit    *middleware.RateLimitConfig // nil disables rate limiting
	Logger       *zap.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(ctrl *session.Controller, recorder *metrics.Recorder, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if recorder != nil {
		r.GET("/metrics", gin.WrapH(recorder.Handler()))
	}

	var submitMiddleware []gin.HandlerFunc
	if cfg.RateLimit != nil {
		submitMiddleware = append(submitMiddleware, middleware.RateLimit(*cfg.RateLimit))
	}

	widgetHandler := widget.NewHandler(ctrl, cfg.Widget, recorder)
	widgetHandler.RegisterRoutes(r.Group("/api"), submitMiddleware...)

	return r
}
