package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify-render/cache"
	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/models"
	"github.com/use-agent/purify-render/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when max_age is set.
//  3. Scraper.Scrape → fetched or rendered HTML  (records fetch_ms, render_ms)
//  4. Cache store, fill Timing, return 200.
func Scrape(sc *scraper.Scraper, cfg config.RenderConfig, cc *cache.Cache[models.ScrapeResponse]) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err, func(d *models.ErrorDetail) any {
				return models.ScrapeResponse{Success: false, Error: d}
			})
			return
		}
		req.Defaults()

		endpoint, delay, err := renderInputs(cfg, req.ChromedriverURL, req.OutputDelayMs)
		if err != nil {
			invalidInput(c, err, func(d *models.ErrorDetail) any {
				return models.ScrapeResponse{Success: false, Error: d}
			})
			return
		}
		delayMs := int(delay / time.Millisecond)
		req.ChromedriverURL = endpoint
		req.OutputDelayMs = &delayMs

		// ── 2. Cache lookup ─────────────────────────────────────────
		var cacheKey string
		if cc != nil && req.MaxAge > 0 {
			cacheKey = cache.Key(req.URL, req.FetchMode, endpoint, delay.String(), req.ProxyURL)
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Scrape ───────────────────────────────────────────────
		result, err := sc.Scrape(c.Request.Context(), &req)
		if err != nil {
			re := asRenderError(err)
			c.JSON(mapErrorToStatus(re), models.ScrapeResponse{
				Success: false,
				Error:   re.ToDetail(),
				Timing:  models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()},
			})
			return
		}

		// ── 4. Respond ──────────────────────────────────────────────
		resp := models.ScrapeResponse{
			Success:    true,
			StatusCode: result.StatusCode,
			FinalURL:   result.FinalURL,
			HTML:       result.HTML,
			Rendered:   result.Rendered,
		}
		if cacheKey != "" {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}
		resp.Timing = models.TimingInfo{
			TotalMs:  time.Since(totalStart).Milliseconds(),
			FetchMs:  result.FetchDuration.Milliseconds(),
			RenderMs: result.RenderDuration.Milliseconds(),
		}

		c.JSON(http.StatusOK, resp)
	}
}
