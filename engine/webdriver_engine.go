package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// remoteFunc opens a WebDriver session. It matches selenium.NewRemote.
type remoteFunc func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error)

// WebDriverEngine drives a browser through an external WebDriver endpoint
// (chromedriver, selenium grid). The endpoint process is never started or
// stopped here.
type WebDriverEngine struct {
	newRemote remoteFunc
}

// NewWebDriverEngine creates a WebDriverEngine backed by tebeka/selenium.
func NewWebDriverEngine() *WebDriverEngine {
	return &WebDriverEngine{newRemote: selenium.NewRemote}
}

func (e *WebDriverEngine) Name() string { return "webdriver" }

// NewSession creates a W3C session against endpoint. The selenium client has
// no context support, so every command runs on its own goroutine and the
// caller stops waiting when ctx is done.
func (e *WebDriverEngine) NewSession(ctx context.Context, endpoint string, caps Capabilities) (Session, error) {
	wdCaps := webDriverCapabilities(caps)
	prefix := strings.TrimRight(endpoint, "/")

	type created struct {
		wd  selenium.WebDriver
		err error
	}
	done := make(chan created, 1)
	go func() {
		wd, err := e.newRemote(wdCaps, prefix)
		done <- created{wd: wd, err: err}
	}()

	select {
	case c := <-done:
		if c.err != nil {
			return nil, c.err
		}
		return &webDriverSession{wd: c.wd}, nil
	case <-ctx.Done():
		// The session may still come up after we gave up; quit it then.
		go func() {
			if c := <-done; c.err == nil {
				_ = c.wd.Quit()
			}
		}()
		return nil, ctx.Err()
	}
}

// webDriverCapabilities maps Capabilities onto a chrome W3C capability set.
func webDriverCapabilities(caps Capabilities) selenium.Capabilities {
	c := selenium.Capabilities{"browserName": "chrome"}
	if caps.PageLoadStrategy != "" {
		c["pageLoadStrategy"] = caps.PageLoadStrategy
	}

	args := make([]string, 0, len(caps.Args)+1)
	args = append(args, caps.Args...)
	if caps.Headless {
		args = append(args, "--headless")
	}
	c.AddChrome(chrome.Capabilities{
		Path: caps.BrowserBin,
		Args: args,
		W3C:  true,
	})
	return c
}

type webDriverSession struct {
	wd selenium.WebDriver
}

func (s *webDriverSession) Navigate(ctx context.Context, url string) error {
	return await(ctx, func() error { return s.wd.Get(url) })
}

func (s *webDriverSession) ExecuteScript(ctx context.Context, script string, args ...json.RawMessage) error {
	params := make([]interface{}, len(args))
	for i, a := range args {
		params[i] = a
	}
	return await(ctx, func() error {
		_, err := s.wd.ExecuteScript(script, params)
		return err
	})
}

func (s *webDriverSession) PageSource(ctx context.Context) (string, error) {
	type source struct {
		html string
		err  error
	}
	done := make(chan source, 1)
	go func() {
		html, err := s.wd.PageSource()
		done <- source{html: html, err: err}
	}()
	select {
	case src := <-done:
		return src.html, src.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *webDriverSession) Quit(ctx context.Context) error {
	return await(ctx, s.wd.Quit)
}

// await runs fn on its own goroutine and returns its error, or ctx.Err() if
// ctx is done first. fn keeps running in the background in that case and its
// result is dropped.
func await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
