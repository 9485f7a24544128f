package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// httpFetcher performs HTTP requests with a Chrome TLS fingerprint (utls).
type httpFetcher struct {
	defaultProxy string
	maxBody      int64
}

// newHTTPFetcher creates a new HTTP fetcher. maxBody caps how many body
// bytes callers can read from a fetched response.
func newHTTPFetcher(defaultProxy string, maxBody int64) *httpFetcher {
	return &httpFetcher{defaultProxy: defaultProxy, maxBody: maxBody}
}

// fetch retrieves the URL via plain HTTP with a Chrome TLS fingerprint.
// proxyOverride, if non-empty, overrides the default proxy.
// The caller must close the returned body.
func (f *httpFetcher) fetch(ctx context.Context, targetURL, proxyOverride string) (*http.Response, error) {
	proxyAddr := proxyOverride
	if proxyAddr == "" {
		proxyAddr = f.defaultProxy
	}

	dialer, err := proxyDialer(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: %w", err)
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}
	if proxyURL, err := url.Parse(proxyAddr); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		client.CloseIdleConnections()
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		client.CloseIdleConnections()
		return nil, fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	resp.Body = &limitedBody{
		Reader: io.LimitReader(resp.Body, f.maxBody),
		body:   resp.Body,
		client: client,
	}
	return resp, nil
}

// limitedBody caps reads and drops the one-shot client's idle connections
// on Close.
type limitedBody struct {
	io.Reader
	body   io.ReadCloser
	client *http.Client
}

func (b *limitedBody) Close() error {
	err := b.body.Close()
	b.client.CloseIdleConnections()
	return err
}

// proxyDialer returns a direct dialer, or a SOCKS5 dialer for socks5 and
// socks5h proxy URLs. HTTP proxies are handled by Transport.Proxy.
func proxyDialer(proxyAddr string) (proxy.ContextDialer, error) {
	direct := &net.Dialer{Timeout: 10 * time.Second}
	if proxyAddr == "" {
		return direct, nil
	}
	proxyURL, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	if proxyURL.Scheme != "socks5" && proxyURL.Scheme != "socks5h" {
		return direct, nil
	}
	d, err := proxy.FromURL(proxyURL, direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks5 dialer does not support contexts")
	}
	return cd, nil
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls2.ClientHelloSpec

func init() {
	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection, so the
	// server must never negotiate it.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, dialer proxy.ContextDialer, network, addr string) (net.Conn, error) {
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host}, tls2.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("apply tls spec: %w", err)
	}

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
// An empty header is treated as HTML.
func isHTMLContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
