package server

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/zulandar/fleetboard/internal/config"
)

// newRouter builds the gin router with all API and static routes.
func newRouter(db *gorm.DB, cfg config.ServerConfig, store *cache.Cache) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second

	api := router.Group("/api")
	api.Use(originCheck())
	if cfg.RateLimitPerSec > 0 {
		api.Use(rateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	}
	{
		if store != nil && ttl > 0 {
			api.GET("/train-cars", cacheResponse(store, ttl), handleTrainCars(db))
		} else {
			api.GET("/train-cars", handleTrainCars(db))
		}
		api.GET("/events", handleSSE(db))
		api.GET("/health", handleHealth(db))
	}

	// Embedded client assets, individually servable for development.
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	// Any other path serves the single-page client.
	router.GET("/", handleIndex)
	router.NoRoute(handleIndex)

	return router
}

func handleIndex(c *gin.Context) {
	page, err := assetsFS.ReadFile("assets/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "client assets missing")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
