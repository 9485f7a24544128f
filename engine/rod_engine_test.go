package engine

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRodEngine_Name(t *testing.T) {
	assert.Equal(t, "cdp", NewRodEngine(false).Name())
	assert.Equal(t, "cdp-stealth", NewRodEngine(true).Name())
}

func TestRodEngine_UnreachableEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := NewRodEngine(false).NewSession(ctx, "ws://127.0.0.1:1/devtools/browser/none", Capabilities{})
	assert.Error(t, err)
}

// TestRodEngine_Session needs a running browser, e.g.
//
//	chromium --headless --remote-debugging-port=9222
//	PURIFY_TEST_CDP_URL=http://127.0.0.1:9222 go test ./engine/
func TestRodEngine_Session(t *testing.T) {
	endpoint := os.Getenv("PURIFY_TEST_CDP_URL")
	if endpoint == "" {
		t.Skip("PURIFY_TEST_CDP_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := NewRodEngine(false).NewSession(ctx, endpoint, Capabilities{Headless: true, PageLoadStrategy: PageLoadNone})
	require.NoError(t, err)
	defer func() { assert.NoError(t, sess.Quit(context.Background())) }()

	require.NoError(t, sess.Navigate(ctx, "about:blank"))

	arg, _ := json.Marshal(`<html><body><p id="out"></p><script>document.getElementById("out").textContent = "from script";</script></body></html>`)
	require.NoError(t, sess.ExecuteScript(ctx, "document.open(); document.write(arguments[0]); document.close();", arg))

	html, err := sess.PageSource(ctx)
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "from script"), html)
}
