package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/purify-render/config"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(h http.Handler, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/render", nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuth_SetsFingerprintNotKey(t *testing.T) {
	var identity string
	g := gin.New()
	g.Use(Auth([]string{"", "secret", "other"}))
	g.POST("/render", func(c *gin.Context) {
		identity = c.GetString(identityKey)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(g).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(g, "X-API-Key", "secre").Code)
	require.Equal(t, http.StatusOK, serve(g, "Authorization", "Bearer secret").Code)

	assert.Len(t, identity, 16)
	assert.NotContains(t, identity, "secret")

	first := identity
	require.Equal(t, http.StatusOK, serve(g, "X-API-Key", "other").Code)
	assert.NotEqual(t, first, identity, "keys map to distinct identities")
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	g := gin.New()
	g.Use(Auth([]string{"", ""}))
	g.POST("/render", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(g).Code)
}

func TestRateLimit_CapsRequestsInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	g := gin.New()
	g.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, MaxInFlight: 1}, nil))
	g.POST("/render", func(c *gin.Context) {
		entered <- struct{}{}
		<-release
		c.Status(http.StatusOK)
	})

	done := make(chan int, 1)
	go func() { done <- serve(g).Code }()
	<-entered

	w := serve(g)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "in flight")

	close(release)
	assert.Equal(t, http.StatusOK, <-done)

	// The slot is free again once the first request finished.
	go func() { <-entered }()
	assert.Equal(t, http.StatusOK, serve(g).Code)
}

func TestRateLimit_RefusesWhenSessionsBusy(t *testing.T) {
	active := 3
	g := gin.New()
	g.Use(RateLimit(config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, MaxSessions: 3}, func() int { return active }))
	g.POST("/render", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(g)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "BACKEND_UNAVAILABLE")

	active = 2
	assert.Equal(t, http.StatusOK, serve(g).Code)
}

func TestAdmission_EvictIdleKeepsBusyCallers(t *testing.T) {
	a := &admission{
		cfg:        config.RateLimitConfig{RequestsPerSecond: 1, Burst: 5},
		identities: make(map[string]*identityState),
	}
	old := time.Now().Add(-2 * time.Hour)

	ok, _ := a.admit("busy", old)
	require.True(t, ok)
	ok, _ = a.admit("idle", old)
	require.True(t, ok)
	a.release("idle")

	a.evictIdle(time.Now().Add(-time.Hour))

	assert.Contains(t, a.identities, "busy")
	assert.NotContains(t, a.identities, "idle")
}

func TestTimeout_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	g := gin.New()
	g.Use(Timeout(30 * time.Second))
	g.POST("/render", func(c *gin.Context) {
		deadline, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	start := time.Now()
	serve(g)
	require.True(t, hasDeadline)
	assert.WithinDuration(t, start.Add(30*time.Second), deadline, 5*time.Second)
}
