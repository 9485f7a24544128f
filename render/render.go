package render

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/use-agent/purify-render/engine"
	"github.com/use-agent/purify-render/models"
)

const (
	// DefaultChromedriverURL is used when RenderOptions.ChromedriverURL is empty.
	DefaultChromedriverURL = "http://127.0.0.1:4444"

	// DefaultOutputDelay is used when RenderOptions.OutputDelay is nil.
	DefaultOutputDelay = 2 * time.Second

	// ExtractTimeout bounds page source retrieval, measured from the end of
	// the output delay.
	ExtractTimeout = 15 * time.Second

	// QuitTimeout bounds session teardown.
	QuitTimeout = 10 * time.Second
)

// injectScript replaces the whole document with arguments[0].
const injectScript = "document.write(arguments[0]);"

// RenderOptions is the input of a single render.
type RenderOptions struct {
	// HTML should be the whole HTML response body from a request.
	HTML string

	// URL should be at least the base URL the HTML came from, but depending
	// on the use case any absolute URL with a host works. It sets the origin
	// the injected scripts run under.
	URL string

	// ChromedriverURL is the address of the automation backend.
	// Default: DefaultChromedriverURL.
	ChromedriverURL string

	// OutputDelay is how long scripts get to run before the DOM is read.
	// Any duration is accepted, including zero, but at least 2 seconds is
	// recommended. Default (nil): DefaultOutputDelay.
	OutputDelay *time.Duration
}

// Delay returns a pointer to d, for RenderOptions.OutputDelay.
func Delay(d time.Duration) *time.Duration { return &d }

// Renderer turns raw HTML into rendered HTML using one fresh browser session
// per call. It keeps no per-call state and is safe for concurrent use.
type Renderer struct {
	engine         engine.Engine
	logger         *slog.Logger
	extractTimeout time.Duration
	browserBin     string
	browserArgs    []string
	active         atomic.Int32
}

// New creates a Renderer that opens sessions through eng.
func New(eng engine.Engine) *Renderer {
	return &Renderer{
		engine:         eng,
		logger:         slog.Default(),
		extractTimeout: ExtractTimeout,
	}
}

// SetLogger replaces the logger used for render diagnostics.
func (r *Renderer) SetLogger(l *slog.Logger) {
	r.logger = l
}

// SetBrowser sets the browser binary and extra switches requested in every
// session's capabilities. Empty values leave the backend defaults.
func (r *Renderer) SetBrowser(bin string, args []string) {
	r.browserBin = bin
	r.browserArgs = args
}

// EngineName reports which backend the renderer drives.
func (r *Renderer) EngineName() string { return r.engine.Name() }

// Active returns the number of renders currently in flight.
func (r *Renderer) Active() int { return int(r.active.Load()) }

// RenderHTML renders HTML through the default WebDriver engine.
func RenderHTML(ctx context.Context, opts RenderOptions) (string, error) {
	return New(engine.NewWebDriverEngine()).RenderHTML(ctx, opts)
}

// RenderHTML injects opts.HTML into a fresh browser session opened on
// opts.URL, waits opts.OutputDelay, and returns the serialized DOM.
//
// There is no guarantee the page finished rendering before the output is
// taken.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Validate URL        – scheme + host, before any backend contact
//  2. Resolve defaults    – endpoint and output delay
//  3. Capabilities        – headless, page load strategy "none"
//  4. Create session
//  5. DEFER: quit         – runs exactly once on every path from here on
//  6. Navigate            – establishes the origin; load is never awaited
//  7. Inject              – document.write with the HTML as one argument
//  8. Output delay        – plain timed wait
//  9. Extract             – page source raced against the watchdog
//
// Step 7 MUST run before the browser's own load of the step 6 navigation
// completes; writing the document afterwards freezes the renderer. That is
// why step 3 asks for page load strategy "none".
func (r *Renderer) RenderHTML(ctx context.Context, opts RenderOptions) (string, error) {
	// ── 1. Validate URL ───────────────────────────────────────────────
	if _, err := parseBaseURL(opts.URL); err != nil {
		return "", err
	}

	// ── 2. Resolve defaults ───────────────────────────────────────────
	endpoint := opts.ChromedriverURL
	if endpoint == "" {
		endpoint = DefaultChromedriverURL
	}
	delay := DefaultOutputDelay
	if opts.OutputDelay != nil {
		delay = *opts.OutputDelay
	}

	// ── 3. Capabilities ───────────────────────────────────────────────
	caps := engine.Capabilities{
		Headless:         true,
		PageLoadStrategy: engine.PageLoadNone,
		BrowserBin:       r.browserBin,
		Args:             r.browserArgs,
	}

	r.active.Add(1)
	defer r.active.Add(-1)

	start := time.Now()
	log := r.logger.With("url", opts.URL, "engine", r.engine.Name())

	// ── 4. Create session ─────────────────────────────────────────────
	sess, err := r.engine.NewSession(ctx, endpoint, caps)
	if err != nil {
		return "", classifySessionError(err)
	}
	log.Debug("browser session created", "endpoint", endpoint)

	// ── 5. CRITICAL DEFER: release the session on every path ─────────
	// The teardown context is detached from ctx so a canceled caller still
	// frees the backend slot.
	defer func() {
		quitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), QuitTimeout)
		defer cancel()
		if quitErr := sess.Quit(quitCtx); quitErr != nil {
			log.Warn("failed to quit browser session", "error", quitErr)
			return
		}
		log.Debug("browser session closed")
	}()

	// ── 6. Navigate ───────────────────────────────────────────────────
	if err := sess.Navigate(ctx, opts.URL); err != nil {
		return "", categorizeError(err, models.ErrCodeNavigation, "navigation to base URL failed")
	}

	// ── 7. Inject ─────────────────────────────────────────────────────
	arg, err := json.Marshal(opts.HTML)
	if err != nil {
		return "", models.NewRenderError(models.ErrCodeSerialization, "failed to encode HTML argument", err)
	}
	if err := sess.ExecuteScript(ctx, injectScript, arg); err != nil {
		return "", categorizeError(err, models.ErrCodeScriptExecution, "failed to inject HTML")
	}
	log.Debug("html injected", "bytes", len(opts.HTML))

	// ── 8. Output delay ───────────────────────────────────────────────
	if err := sleep(ctx, delay); err != nil {
		return "", models.NewRenderError(models.ErrCodeCanceled, "render canceled during output delay", err)
	}

	// ── 9. Extract ────────────────────────────────────────────────────
	html, err := r.extract(ctx, sess)
	if err != nil {
		log.Warn("page source retrieval failed", "error", err, "elapsed", time.Since(start))
		return "", err
	}

	log.Info("page rendered",
		"delay", delay,
		"elapsed", time.Since(start),
		"bytes", len(html),
	)
	return html, nil
}

// extract reads the page source on its own goroutine and races it against
// the watchdog. The result channel is buffered, so a source call that loses
// the race finishes into it and is dropped.
func (r *Renderer) extract(ctx context.Context, sess engine.Session) (string, error) {
	type sourceResult struct {
		html string
		err  error
	}

	srcCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan sourceResult, 1)
	go func() {
		html, err := sess.PageSource(srcCtx)
		results <- sourceResult{html: html, err: err}
	}()

	watchdog := time.NewTimer(r.extractTimeout)
	defer watchdog.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return "", categorizeError(res.err, models.ErrCodeSourceRetrieval, "failed to retrieve page source")
		}
		return res.html, nil
	case <-watchdog.C:
		return "", models.NewRenderError(models.ErrCodeTimeout, "page source retrieval timed out", nil)
	case <-ctx.Done():
		return "", models.NewRenderError(models.ErrCodeCanceled, "render canceled during extraction", ctx.Err())
	}
}

// parseBaseURL checks that raw decomposes into scheme + host.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, models.NewRenderError(models.ErrCodeInvalidURL, "malformed URL", err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, models.NewRenderError(models.ErrCodeInvalidURL, "cannot-be-a-base URL not supported", nil)
	}
	return u, nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifySessionError separates an unreachable backend from one that
// refused the session.
func classifySessionError(err error) *models.RenderError {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.NewRenderError(models.ErrCodeCanceled, "render canceled while creating session", err)
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return models.NewRenderError(models.ErrCodeBackendUnavailable, "automation backend unreachable", err)
	default:
		return models.NewRenderError(models.ErrCodeSessionCreation, "failed to create browser session", err)
	}
}

// categorizeError wraps raw step errors into typed RenderErrors so the API
// layer can map them to appropriate HTTP status codes.
func categorizeError(err error, code, msg string) *models.RenderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.NewRenderError(models.ErrCodeCanceled, "render canceled", err)
	default:
		return models.NewRenderError(code, msg, err)
	}
}
