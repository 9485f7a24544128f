package render

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/purify-render/engine"
	"github.com/use-agent/purify-render/models"
)

// Response is the part of a completed HTTP response the adapter needs: the
// URL it was fetched from and its full body as text.
type Response interface {
	URL() *url.URL
	Text(ctx context.Context) (string, error)
}

// HTTPResponse adapts a net/http response. Text reads and closes the body;
// the read is bound to the context of the request that produced resp.
func HTTPResponse(resp *http.Response) Response {
	return httpResponse{resp: resp}
}

type httpResponse struct {
	resp *http.Response
}

func (r httpResponse) URL() *url.URL {
	if r.resp.Request == nil {
		return nil
	}
	return r.resp.Request.URL
}

func (r httpResponse) Text(ctx context.Context) (string, error) {
	defer r.resp.Body.Close()
	body, err := io.ReadAll(r.resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// StaticResponse is a Response whose body was already read.
type StaticResponse struct {
	FinalURL *url.URL
	Body     string
}

func (r StaticResponse) URL() *url.URL { return r.FinalURL }

func (r StaticResponse) Text(context.Context) (string, error) { return r.Body, nil }

// OriginURL returns scheme://host for u. Port, path, query and fragment are
// dropped; the result only sets the origin scripts execute under.
func OriginURL(u *url.URL) (string, error) {
	if u == nil || u.Hostname() == "" {
		return "", models.NewRenderError(models.ErrCodeInvalidURL, "cannot-be-a-base URL not supported", nil)
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host, nil
}

// RenderResponse renders a response through the default WebDriver engine.
func RenderResponse(ctx context.Context, resp Response, chromedriverURL string, outputDelay *time.Duration) (string, error) {
	return New(engine.NewWebDriverEngine()).RenderResponse(ctx, resp, chromedriverURL, outputDelay)
}

// RenderResponse renders the body of resp under the origin it was fetched
// from. An empty chromedriverURL or nil outputDelay selects the defaults.
func (r *Renderer) RenderResponse(ctx context.Context, resp Response, chromedriverURL string, outputDelay *time.Duration) (string, error) {
	origin, err := OriginURL(resp.URL())
	if err != nil {
		return "", err
	}

	text, err := resp.Text(ctx)
	if err != nil {
		return "", models.NewRenderError(models.ErrCodeBodyReadFailed, "failed to read response body", err)
	}

	return r.RenderHTML(ctx, RenderOptions{
		HTML:            text,
		URL:             origin,
		ChromedriverURL: chromedriverURL,
		OutputDelay:     outputDelay,
	})
}
