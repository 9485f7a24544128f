package models

// RenderResponse is the response for POST /api/v1/render.
type RenderResponse struct {
	// Success indicates whether the render completed without errors.
	Success bool `json:"success"`

	// HTML is the serialized DOM after the output delay.
	HTML string `json:"html"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	Success bool `json:"success"`

	// StatusCode is the HTTP status code of the fetched page.
	StatusCode int `json:"status_code"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url"`

	// HTML is the rendered DOM, or the raw body when Rendered is false.
	HTML string `json:"html"`

	// Rendered reports whether the body went through the browser.
	Rendered bool `json:"rendered"`

	Timing TimingInfo `json:"timing"`

	CacheStatus string `json:"cache_status,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// FetchMs is the time spent on the upstream HTTP fetch.
	FetchMs int64 `json:"fetch_ms,omitempty"`

	// RenderMs is the time spent in the browser session.
	RenderMs int64 `json:"render_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"` // "healthy"
	Uptime        string `json:"uptime"`
	Engine        string `json:"engine"`
	ActiveRenders int    `json:"active_renders"`
	Version       string `json:"version"`
}
