package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/purify-render/api"
	"github.com/use-agent/purify-render/cache"
	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/engine"
	"github.com/use-agent/purify-render/models"
	"github.com/use-agent/purify-render/render"
	"github.com/use-agent/purify-render/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("purify-render starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Render.Engine,
		"endpoint", cfg.Render.Endpoint(),
	)

	// ── 3. Select the automation backend ────────────────────────────
	eng, err := newEngine(cfg.Render)
	if err != nil {
		slog.Error("failed to select engine", "error", err)
		os.Exit(1)
	}

	r := render.New(eng)
	r.SetBrowser(cfg.Render.BrowserBin, cfg.Render.BrowserArgs)

	// ── 4. Initialise scraper ───────────────────────────────────────
	sc := scraper.NewScraper(r, cfg.Render, cfg.Fetch)

	// ── 4b. Initialise caches ───────────────────────────────────────
	caches := api.Caches{
		Render: cache.New[models.RenderResponse](cfg.Cache.MaxEntries),
		Scrape: cache.New[models.ScrapeResponse](cfg.Cache.MaxEntries),
	}
	defer caches.Render.Close()
	defer caches.Scrape.Close()

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(r, sc, cfg, caches, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String(), "active_renders", r.Active())

	// In-flight renders may still be inside their output delay or the
	// extraction watchdog.
	ctx, cancel := context.WithTimeout(context.Background(), render.ExtractTimeout+cfg.Render.OutputDelay)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("purify-render stopped")
}

// newEngine builds the backend named by cfg.Engine.
func newEngine(cfg config.RenderConfig) (engine.Engine, error) {
	switch cfg.Engine {
	case "webdriver", "":
		return engine.NewWebDriverEngine(), nil
	case "cdp":
		return engine.NewRodEngine(cfg.Stealth), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want webdriver or cdp)", cfg.Engine)
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
