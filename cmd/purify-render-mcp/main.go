package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the service's error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// timing mirrors the service's timing breakdown.
type timing struct {
	TotalMs  int64 `json:"total_ms"`
	FetchMs  int64 `json:"fetch_ms"`
	RenderMs int64 `json:"render_ms"`
}

// renderResponse mirrors the render API response model.
type renderResponse struct {
	Success     bool      `json:"success"`
	HTML        string    `json:"html"`
	Timing      timing    `json:"timing"`
	CacheStatus string    `json:"cache_status"`
	Error       *apiError `json:"error"`
}

// scrapeResponse mirrors the scrape API response model.
type scrapeResponse struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"status_code"`
	FinalURL   string    `json:"final_url"`
	HTML       string    `json:"html"`
	Rendered   bool      `json:"rendered"`
	Timing     timing    `json:"timing"`
	Error      *apiError `json:"error"`
}

// clientTimeout covers the longest default render: output delay, the
// extraction watchdog and session setup.
const clientTimeout = 120 * time.Second

func main() {
	apiURL := os.Getenv("PURIFY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PURIFY_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PURIFY_API_KEY is required")
		os.Exit(1)
	}

	s := newServer(apiURL, apiKey)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"purify-render",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	renderHTMLTool := mcp.NewTool("render_html",
		mcp.WithDescription("Render raw HTML in a headless browser as if it had been served from the given URL, letting its scripts run, and return the resulting DOM as HTML."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("The full HTML document to render"),
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL the HTML came from; its origin is where the page scripts run"),
		),
		mcp.WithNumber("output_delay_ms",
			mcp.Description("How long scripts may run before the DOM is read (default: server setting, usually 2000)"),
		),
	)
	s.AddTool(renderHTMLTool, handleRenderHTML(apiURL, apiKey))

	scrapeURLTool := mcp.NewTool("scrape_url",
		mcp.WithDescription("Fetch a web page and return its HTML, rendering it in a headless browser when it needs JavaScript."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to fetch"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("'auto' (default, render only JS-dependent pages), 'browser' (always render), or 'http' (never render)"),
			mcp.Enum("auto", "browser", "http"),
		),
		mcp.WithNumber("output_delay_ms",
			mcp.Description("How long scripts may run before the DOM is read"),
		),
	)
	s.AddTool(scrapeURLTool, handleScrapeURL(apiURL, apiKey))

	return s
}

// apiPost sends a POST request to the service and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func errorText(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleRenderHTML(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: clientTimeout}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := request.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}
		baseURL, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{"html": html, "url": baseURL}
		if _, ok := request.GetArguments()["output_delay_ms"]; ok {
			payload["output_delay_ms"] = int(request.GetFloat("output_delay_ms", 0))
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/render", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render request failed: %v", err)), nil
		}

		var rr renderResponse
		if err := json.Unmarshal(respBody, &rr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !rr.Success {
			return mcp.NewToolResultError(errorText("render failed", rr.Error)), nil
		}

		return mcp.NewToolResultText(rr.HTML), nil
	}
}

func handleScrapeURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: clientTimeout}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{"url": url}
		if mode := request.GetString("fetch_mode", ""); mode != "" {
			payload["fetch_mode"] = mode
		}
		if _, ok := request.GetArguments()["output_delay_ms"]; ok {
			payload["output_delay_ms"] = int(request.GetFloat("output_delay_ms", 0))
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}

		var sr scrapeResponse
		if err := json.Unmarshal(respBody, &sr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !sr.Success {
			return mcp.NewToolResultError(errorText("scrape failed", sr.Error)), nil
		}

		header := fmt.Sprintf("Source: %s (HTTP %d, rendered: %t, %d ms)\n\n",
			sr.FinalURL, sr.StatusCode, sr.Rendered, sr.Timing.TotalMs)
		return mcp.NewToolResultText(header + sr.HTML), nil
	}
}
