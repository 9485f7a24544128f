package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL    = flag.String("api-url", "http://localhost:8080", "purify-render API base URL")
	apiKey    = flag.String("api-key", "", "API key for authenticated requests")
	runs      = flag.Int("runs", 3, "Number of runs per URL for averaging")
	fetchMode = flag.String("fetch-mode", "browser", "fetch_mode sent with every scrape: auto, browser or http")
	delayMs   = flag.Int("delay-ms", 2000, "output_delay_ms sent with every scrape")
	output    = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering static pages and client-rendered apps.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"SPA", "https://react.dev"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL           string `json:"url"`
	FetchMode     string `json:"fetch_mode"`
	OutputDelayMs int    `json:"output_delay_ms"`
}

type scrapeResponse struct {
	Success    bool         `json:"success"`
	StatusCode int          `json:"status_code"`
	HTML       string       `json:"html"`
	Rendered   bool         `json:"rendered"`
	Timing     timingInfo   `json:"timing"`
	Error      *errorDetail `json:"error,omitempty"`
}

type timingInfo struct {
	TotalMs  int64 `json:"total_ms"`
	FetchMs  int64 `json:"fetch_ms"`
	RenderMs int64 `json:"render_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	FetchMs    int64  `json:"fetch_ms"`
	RenderMs   int64  `json:"render_ms"`
	HTMLLength int    `json:"html_length"`
	StatusCode int    `json:"status_code"`
	Rendered   bool   `json:"rendered"`
	Success    bool   `json:"success"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs    float64 `json:"total_ms"`
	FetchMs    float64 `json:"fetch_ms"`
	RenderMs   float64 `json:"render_ms"`
	HTMLLength float64 `json:"html_length"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp     string      `json:"timestamp"`
	APIURL        string      `json:"api_url"`
	FetchMode     string      `json:"fetch_mode"`
	OutputDelayMs int         `json:"output_delay_ms"`
	RunsPerURL    int         `json:"runs_per_url"`
	Results       []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== purify-render Benchmark Suite ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Fetch mode: %s\n", *fetchMode)
	fmt.Printf("Delay:      %dms\n", *delayMs)
	fmt.Printf("Runs/URL:   %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		APIURL:        *apiURL,
		FetchMode:     *fetchMode,
		OutputDelayMs: *delayMs,
		RunsPerURL:    *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms (render %dms, rendered=%t)\n", rr.TotalMs, rr.RenderMs, rr.Rendered)
			} else {
				fmt.Printf("FAILED: [%s] %s\n", rr.ErrorCode, rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(scrapeRequest{
		URL:           url,
		FetchMode:     *fetchMode,
		OutputDelayMs: *delayMs,
	})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	// Output delay plus the 15s extraction watchdog plus fetch and setup.
	client := &http.Client{Timeout: time.Duration(*delayMs)*time.Millisecond + 75*time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.StatusCode = sr.StatusCode
	rr.Rendered = sr.Rendered
	rr.TotalMs = sr.Timing.TotalMs
	rr.FetchMs = sr.Timing.FetchMs
	rr.RenderMs = sr.Timing.RenderMs
	rr.HTMLLength = len(sr.HTML)
	if sr.Error != nil {
		rr.ErrorCode = sr.Error.Code
		rr.Error = sr.Error.Message
	}
	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.FetchMs += float64(r.FetchMs)
		avg.RenderMs += float64(r.RenderMs)
		avg.HTMLLength += float64(r.HTMLLength)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.FetchMs /= n
	avg.RenderMs /= n
	avg.HTMLLength /= n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Total\tAvg Fetch\tAvg Render\tHTML Len\tFailures\n")
	fmt.Fprintf(w, "───\t─────────\t─────────\t──────────\t────────\t────────\n")

	for _, r := range results {
		failures := countFailures(r.Runs)
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t%d\n", truncateURL(r.URL, 40), failures)
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%dms\t%dms\t%s\t%d\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			int64(r.Averages.FetchMs),
			int64(r.Averages.RenderMs),
			formatInt(int(r.Averages.HTMLLength)),
			failures,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func countFailures(runs []runResult) int {
	n := 0
	for _, r := range runs {
		if !r.Success {
			n++
		}
	}
	return n
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func formatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
