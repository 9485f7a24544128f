package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/engine/enginetest"
	"github.com/use-agent/purify-render/models"
	"github.com/use-agent/purify-render/render"
)

const spaShell = `<html><head><script src="/app.js"></script></head><body><div id="root"></div></body></html>`

var staticArticle = `<html><head><title>Article</title></head><body><article>` +
	strings.Repeat("Plenty of server-rendered prose that needs no JavaScript at all. ", 10) +
	`</article></body></html>`

func newTestScraper(t *testing.T) (*Scraper, *enginetest.Engine, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/spa", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, spaShell)
	})
	mux.HandleFunc("/static", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, staticArticle)
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ok":true}`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	eng := enginetest.New()
	sc := NewScraper(render.New(eng),
		config.RenderConfig{
			Engine:          "webdriver",
			ChromedriverURL: "http://chromedriver:4444",
			OutputDelay:     0,
		},
		config.FetchConfig{MaxBodyBytes: 1 << 20, Timeout: 5 * time.Second},
	)
	return sc, eng, srv
}

func TestScrape_HTTPModeNeverRenders(t *testing.T) {
	sc, eng, srv := newTestScraper(t)

	res, err := sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/spa", FetchMode: "http"})
	require.NoError(t, err)

	assert.False(t, res.Rendered)
	assert.Equal(t, spaShell, res.HTML)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, eng.Calls())
}

func TestScrape_BrowserModeUsesAdapter(t *testing.T) {
	sc, eng, srv := newTestScraper(t)

	res, err := sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/static?page=2", FetchMode: "browser"})
	require.NoError(t, err)

	assert.True(t, res.Rendered)
	assert.Equal(t, staticArticle, res.HTML)
	assert.Equal(t, srv.URL+"/static?page=2", res.FinalURL)

	calls := eng.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, "http://chromedriver:4444", calls[0].Endpoint)
	assert.Equal(t, "http://127.0.0.1", calls[1].URL, "navigation uses the bare origin")
}

func TestScrape_AutoModeRendersOnlySPAShells(t *testing.T) {
	sc, eng, srv := newTestScraper(t)

	res, err := sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/static", FetchMode: "auto"})
	require.NoError(t, err)
	assert.False(t, res.Rendered)
	assert.Empty(t, eng.Calls())

	res, err = sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/json", FetchMode: "auto"})
	require.NoError(t, err)
	assert.False(t, res.Rendered, "non-HTML bodies are returned as fetched")

	res, err = sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/spa", FetchMode: "auto"})
	require.NoError(t, err)
	assert.True(t, res.Rendered)
	assert.Equal(t, 1, eng.Count("new_session"))
	assert.Equal(t, 1, eng.Count("quit"))
}

func TestScrape_RequestOverridesEndpointAndDelay(t *testing.T) {
	sc, eng, srv := newTestScraper(t)
	delayMs := 0

	_, err := sc.Scrape(context.Background(), &models.ScrapeRequest{
		URL:             srv.URL + "/spa",
		FetchMode:       "browser",
		ChromedriverURL: "http://other-driver:9515",
		OutputDelayMs:   &delayMs,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://other-driver:9515", eng.Calls()[0].Endpoint)
}

func TestScrape_FetchErrors(t *testing.T) {
	sc, eng, srv := newTestScraper(t)

	_, err := sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/missing", FetchMode: "browser"})
	assert.True(t, errors.Is(err, models.ErrFetchFailed), "got %v", err)
	assert.Empty(t, eng.Calls())
}

func TestScrape_RenderErrorsPropagate(t *testing.T) {
	sc, eng, srv := newTestScraper(t)
	eng.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := sc.Scrape(context.Background(), &models.ScrapeRequest{URL: srv.URL + "/spa", FetchMode: "browser"})
	assert.True(t, errors.Is(err, models.ErrNavigation), "got %v", err)
	assert.Equal(t, 1, eng.Count("quit"))
}

func TestNeedsBrowser(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"spa shell", spaShell, true},
		{"static article", staticArticle, false},
		{"next root", `<body>` + strings.Repeat("text ", 100) + `<div id="__next"></div></body>`, true},
		{"noscript warning", `<body>` + strings.Repeat("text ", 100) + `<noscript>Please enable JavaScript to continue</noscript></body>`, true},
		{"script text ignored", `<body><script>` + strings.Repeat("var a = 1; ", 100) + `</script></body>`, true},
		{"whitespace-only mount", `<body>` + strings.Repeat("text ", 100) + `<div id="app">
  </div></body>`, true},
		{"server-rendered mount", `<body><div id="root"><p>` + strings.Repeat("hydrated markup ", 40) + `</p></div></body>`, false},
		{"inline bootstrap payload", `<body><p>` + strings.Repeat("text ", 60) + `</p><script>window.__STATE__=` +
			strings.Repeat(`{"k":"v"},`, 700) + `</script></body>`, true},
		{"few small scripts", `<body><p>` + strings.Repeat("text ", 100) + `</p><script>track()</script></body>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsBrowser([]byte(tt.body)))
		})
	}
}

func TestIsHTMLContentType(t *testing.T) {
	assert.True(t, isHTMLContentType("text/html; charset=utf-8"))
	assert.True(t, isHTMLContentType("application/xhtml+xml"))
	assert.True(t, isHTMLContentType(""))
	assert.False(t, isHTMLContentType("application/json"))
}
