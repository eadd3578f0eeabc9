package api

import (
	"github.com/consortial/counterharvest/internal/api/handler"
	"github.com/consortial/counterharvest/internal/api/middleware"
	"github.com/consortial/counterharvest/internal/config"
	"github.com/consortial/counterharvest/internal/logger"
	"github.com/consortial/counterharvest/internal/repository"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with the read-only status routes.
func SetupRouter(
	tenants *repository.TenantManager,
	cfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	harvestHandler := handler.NewHarvestHandler(tenants)
	alertHandler := handler.NewAlertHandler(tenants)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/harvests", harvestHandler.ListHarvests)
		v1.GET("/harvests/:id", harvestHandler.GetHarvest)
		v1.GET("/alerts", alertHandler.ListAlerts)
	}

	return r
}
