// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"servo-service/internal/config"
	"servo-service/internal/database"
	"servo-service/internal/handler"
	"servo-service/internal/metrics"
	"servo-service/internal/middleware"
	"servo-service/internal/service"
	"servo-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	servoService     *service.ServoService
	discoveryService *service.DiscoveryService
	wsHandler        *handler.WebSocketHandler
	registry         *prometheus.Registry
}

// NewRouter creates a new router instance. db is nil when the journal is in
// memory and registry is nil when metrics are disabled.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	servoService *service.ServoService,
	discoveryService *service.DiscoveryService,
	wsHandler *handler.WebSocketHandler,
	registry *prometheus.Registry,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		servoService:     servoService,
		discoveryService: discoveryService,
		wsHandler:        wsHandler,
		registry:         registry,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	r.addMiddleware(router)
	r.addRoutes(router)
	return router
}

func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))
	router.Use(middleware.CORSMiddleware(&r.config.Security))

	if r.config.Security.RateLimitEnabled {
		router.Use(middleware.RateLimitMiddleware(&r.config.Security, serviceLogger))
	}

	r.logger.Info("Middleware configured",
		zap.Bool("rate_limit", r.config.Security.RateLimitEnabled),
	)
}

func (r *Router) addRoutes(router *gin.Engine) {
	handler.NewHealthHandler(r.db, r.servoService, r.config, r.logger).RegisterRoutes(&router.RouterGroup)

	apiV1 := router.Group("/api/v1")
	handler.NewServoHandler(r.servoService, r.discoveryService, r.logger).RegisterRoutes(apiV1)
	handler.NewOperationHandler(r.servoService, r.logger).RegisterRoutes(apiV1)

	if r.wsHandler != nil {
		router.GET("/ws/events", r.wsHandler.HandleEventConnection)
	}

	if r.registry != nil {
		router.GET(r.config.Metrics.Path, gin.WrapH(metrics.Handler(r.registry)))
	}

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
