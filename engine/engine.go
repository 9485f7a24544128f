package engine

import (
	"context"
	"encoding/json"
)

// PageLoadNone tells the backend not to block commands on the browser's own
// navigation-complete event.
const PageLoadNone = "none"

// Engine is the interface that all browser-automation backends must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "webdriver", "cdp").
	Name() string

	// NewSession opens one fresh browser session against endpoint.
	// The caller owns the returned Session and must Quit it.
	NewSession(ctx context.Context, endpoint string, caps Capabilities) (Session, error)
}

// Session is one live browser tab/context driven by an Engine.
// A Session is not safe for concurrent use.
type Session interface {
	// Navigate points the session at url. It never waits for the page load.
	Navigate(ctx context.Context, url string) error

	// ExecuteScript runs script as the body of a function in the page, with
	// args bound to arguments[0..n].
	ExecuteScript(ctx context.Context, script string, args ...json.RawMessage) error

	// PageSource returns the current serialized DOM.
	PageSource(ctx context.Context) (string, error)

	// Quit destroys the session and releases backend resources.
	Quit(ctx context.Context) error
}

// Capabilities describes the browser requested from the backend.
type Capabilities struct {
	// Headless runs the browser without a window.
	Headless bool

	// PageLoadStrategy controls whether navigation blocks on load ("none",
	// "eager", "normal"). Empty leaves the backend default.
	PageLoadStrategy string

	// BrowserBin overrides the browser binary the backend launches.
	BrowserBin string

	// Args are extra browser command-line switches.
	Args []string
}
