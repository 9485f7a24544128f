package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// RodEngine is a CDP-based engine that attaches to an already running
// browser (e.g. chrome --remote-debugging-port=9222) through go-rod.
// Each session lives in its own incognito browser context, so quitting a
// session never closes the shared browser. The forceStealth flag
// distinguishes "cdp" from "cdp-stealth".
type RodEngine struct {
	forceStealth bool
	name         string
}

// NewRodEngine creates a RodEngine.
//   - forceStealth: when true, every new page gets the stealth evasions
//     installed before navigation.
func NewRodEngine(forceStealth bool) *RodEngine {
	name := "cdp"
	if forceStealth {
		name = "cdp-stealth"
	}
	return &RodEngine{
		forceStealth: forceStealth,
		name:         name,
	}
}

func (e *RodEngine) Name() string { return e.name }

// NewSession connects to endpoint, which is either a DevTools websocket URL
// or an HTTP debugging address that is resolved to one.
//
// Capabilities are honored by the running browser rather than requested:
// rod's Navigate never waits for the load event, which is the "none"
// page-load strategy, and headless mode is decided when the browser was
// started.
func (e *RodEngine) NewSession(ctx context.Context, endpoint string, caps Capabilities) (Session, error) {
	if caps.PageLoadStrategy != "" && caps.PageLoadStrategy != PageLoadNone {
		slog.Debug("cdp engine ignores page load strategy", "strategy", caps.PageLoadStrategy)
	}

	controlURL := endpoint
	if !strings.HasPrefix(endpoint, "ws://") && !strings.HasPrefix(endpoint, "wss://") {
		resolved, err := launcher.ResolveURL(endpoint)
		if err != nil {
			return nil, fmt.Errorf("%s: resolve control url: %w", e.name, err)
		}
		controlURL = resolved
	}

	// The connection outlives this call, so it gets its own context which
	// Quit cancels.
	connCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	browser := rod.New().Context(connCtx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("%s: connect: %w", e.name, err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s: create browser context: %w", e.name, err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		cancel()
		return nil, fmt.Errorf("%s: create page: %w", e.name, err)
	}

	if e.forceStealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	return &rodSession{browser: incognito, page: page, cancel: cancel}, nil
}

type rodSession struct {
	browser *rod.Browser
	page    *rod.Page
	cancel  context.CancelFunc
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	return s.page.Context(ctx).Navigate(url)
}

// ExecuteScript wraps script in a plain function so that arguments[i]
// resolves the same way it does for WebDriver's execute command.
func (s *rodSession) ExecuteScript(ctx context.Context, script string, args ...json.RawMessage) error {
	params := make([]interface{}, len(args))
	for i, a := range args {
		params[i] = a
	}
	_, err := s.page.Context(ctx).Eval("function() {\n"+script+"\n}", params...)
	return err
}

func (s *rodSession) PageSource(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Quit disposes the incognito context, which closes its page, then drops
// the websocket connection.
func (s *rodSession) Quit(ctx context.Context) error {
	defer s.cancel()
	return s.browser.Context(ctx).Close()
}
