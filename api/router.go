package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify-render/api/handler"
	"github.com/use-agent/purify-render/api/middleware"
	"github.com/use-agent/purify-render/cache"
	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/models"
	"github.com/use-agent/purify-render/render"
	"github.com/use-agent/purify-render/scraper"
)

// Caches groups the response caches used by the handlers. A nil cache
// disables caching for its endpoint.
type Caches struct {
	Render *cache.Cache[models.RenderResponse]
	Scrape *cache.Cache[models.ScrapeResponse]
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit → Timeout
//
// Health endpoint is intentionally outside auth so monitoring checks always work.
func NewRouter(r *render.Renderer, sc *scraper.Scraper, cfg *config.Config, caches Caches, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(gin.Logger())

	v1 := g.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(r, startTime))

	// Protected group: auth, rate limit, request deadline.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit, r.Active))
	protected.Use(middleware.Timeout(cfg.Render.RequestTimeout))

	protected.POST("/render", handler.Render(r, cfg.Render, caches.Render))
	protected.POST("/scrape", handler.Scrape(sc, cfg.Render, caches.Scrape))

	return g
}
