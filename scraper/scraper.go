package scraper

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/models"
	"github.com/use-agent/purify-render/render"
)

// Scraper fetches pages over HTTP and hands the responses to a Renderer.
// It is safe for concurrent use.
type Scraper struct {
	renderer    *render.Renderer
	httpFetcher *httpFetcher
	renderCfg   config.RenderConfig
	fetchCfg    config.FetchConfig
}

// NewScraper creates a Scraper. renderCfg supplies the endpoint and output
// delay used when a request leaves them unset.
func NewScraper(r *render.Renderer, renderCfg config.RenderConfig, fetchCfg config.FetchConfig) *Scraper {
	return &Scraper{
		renderer:    r,
		httpFetcher: newHTTPFetcher(fetchCfg.DefaultProxy, fetchCfg.MaxBodyBytes),
		renderCfg:   renderCfg,
		fetchCfg:    fetchCfg,
	}
}

// Scrape fetches req.URL and, depending on req.FetchMode, renders the body.
//
//   - "http":    never render; return the raw body.
//   - "browser": always render through the fetch-result adapter.
//   - "auto":    render only when the body looks like an SPA shell or a
//     page that requires JavaScript.
func (s *Scraper) Scrape(ctx context.Context, req *models.ScrapeRequest) (*ScrapeResult, error) {
	// ── 1. Fetch ──────────────────────────────────────────────────────
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchCfg.Timeout)
	defer cancel()

	fetchStart := time.Now()
	resp, err := s.httpFetcher.fetch(fetchCtx, req.URL, req.ProxyURL)
	if err != nil {
		return nil, models.NewRenderError(models.ErrCodeFetchFailed, "failed to fetch target URL", err)
	}
	defer resp.Body.Close()

	result := &ScrapeResult{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}

	endpoint := req.ChromedriverURL
	if endpoint == "" {
		endpoint = s.renderCfg.Endpoint()
	}
	delay := models.OutputDelay(req.OutputDelayMs)
	if delay == nil {
		delay = render.Delay(s.renderCfg.OutputDelay)
	}

	// ── 2a. Browser mode: the adapter reads the body itself ──────────
	if req.FetchMode == "browser" {
		renderStart := time.Now()
		html, err := s.renderer.RenderResponse(ctx, render.HTTPResponse(resp), endpoint, delay)
		result.FetchDuration = renderStart.Sub(fetchStart)
		result.RenderDuration = time.Since(renderStart)
		if err != nil {
			return nil, err
		}
		result.HTML = html
		result.Rendered = true
		return result, nil
	}

	// ── 2b. Read the raw body ─────────────────────────────────────────
	body, err := io.ReadAll(resp.Body)
	result.FetchDuration = time.Since(fetchStart)
	if err != nil {
		return nil, models.NewRenderError(models.ErrCodeBodyReadFailed, "failed to read response body", err)
	}
	result.HTML = string(body)

	if req.FetchMode == "http" {
		return result, nil
	}

	// ── 3. Auto mode: render only pages that need it ─────────────────
	if !isHTMLContentType(resp.Header.Get("Content-Type")) || !needsBrowser(body) {
		slog.Debug("static page, skipping render", "url", req.URL)
		return result, nil
	}

	renderStart := time.Now()
	html, err := s.renderer.RenderResponse(ctx, render.StaticResponse{
		FinalURL: resp.Request.URL,
		Body:     result.HTML,
	}, endpoint, delay)
	result.RenderDuration = time.Since(renderStart)
	if err != nil {
		return nil, err
	}
	result.HTML = html
	result.Rendered = true
	return result, nil
}
