package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify-render/cache"
	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/models"
	"github.com/use-agent/purify-render/render"
)

// Render returns a handler for POST /api/v1/render.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Cache lookup when max_age is set.
//  3. Renderer.RenderHTML  (records render_ms)
//  4. Cache store, fill Timing, return 200.
func Render(r *render.Renderer, cfg config.RenderConfig, cc *cache.Cache[models.RenderResponse]) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err, func(d *models.ErrorDetail) any {
				return models.RenderResponse{Success: false, Error: d}
			})
			return
		}

		endpoint, delay, err := renderInputs(cfg, req.ChromedriverURL, req.OutputDelayMs)
		if err != nil {
			invalidInput(c, err, func(d *models.ErrorDetail) any {
				return models.RenderResponse{Success: false, Error: d}
			})
			return
		}
		opts := render.RenderOptions{
			HTML:            req.HTML,
			URL:             req.URL,
			ChromedriverURL: endpoint,
			OutputDelay:     render.Delay(delay),
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		var cacheKey string
		if cc != nil && req.MaxAge > 0 {
			cacheKey = cache.Key(req.URL, req.HTML, endpoint, delay.String())
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Render ───────────────────────────────────────────────
		renderStart := time.Now()
		html, err := r.RenderHTML(c.Request.Context(), opts)
		renderMs := time.Since(renderStart).Milliseconds()

		if err != nil {
			re := asRenderError(err)
			c.JSON(mapErrorToStatus(re), models.RenderResponse{
				Success: false,
				Error:   re.ToDetail(),
				Timing: models.TimingInfo{
					TotalMs:  time.Since(totalStart).Milliseconds(),
					RenderMs: renderMs,
				},
			})
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		resp := models.RenderResponse{
			Success: true,
			HTML:    html,
		}
		if cacheKey != "" {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}
		resp.Timing = models.TimingInfo{
			TotalMs:  time.Since(totalStart).Milliseconds(),
			RenderMs: renderMs,
		}

		c.JSON(http.StatusOK, resp)
	}
}
