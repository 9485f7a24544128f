package scraper

import "time"

// ScrapeResult is the outcome of one fetch-and-render.
type ScrapeResult struct {
	// HTML is the rendered DOM, or the raw body when Rendered is false.
	HTML string

	StatusCode int
	FinalURL   string

	// Rendered records whether the body went through the browser.
	Rendered bool

	FetchDuration  time.Duration
	RenderDuration time.Duration
}
