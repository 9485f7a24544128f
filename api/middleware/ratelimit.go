package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify-render/config"
	"github.com/use-agent/purify-render/models"
	"golang.org/x/time/rate"
)

// identityState is the admission state of one caller.
type identityState struct {
	limiter  *rate.Limiter
	inFlight int
	lastSeen time.Time
}

// admission tracks every caller seen in the last hour.
type admission struct {
	cfg config.RateLimitConfig

	mu         sync.Mutex
	identities map[string]*identityState
}

// admit applies the token bucket and the in-flight cap for identity. On
// success the caller must call release once the request is done.
func (a *admission) admit(identity string, now time.Time) (ok bool, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, found := a.identities[identity]
	if !found {
		st = &identityState{limiter: rate.NewLimiter(rate.Limit(a.cfg.RequestsPerSecond), a.cfg.Burst)}
		a.identities[identity] = st
	}
	st.lastSeen = now

	if a.cfg.MaxInFlight > 0 && st.inFlight >= a.cfg.MaxInFlight {
		return false, "too many requests in flight for this caller"
	}
	if !st.limiter.AllowN(now, 1) {
		return false, "rate limit exceeded, please slow down"
	}
	st.inFlight++
	return true, ""
}

func (a *admission) release(identity string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.identities[identity]; ok && st.inFlight > 0 {
		st.inFlight--
	}
}

// evictIdle drops callers with nothing in flight that were last seen
// before cutoff.
func (a *admission) evictIdle(cutoff time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, st := range a.identities {
		if st.inFlight == 0 && st.lastSeen.Before(cutoff) {
			delete(a.identities, id)
		}
	}
}

// RateLimit returns per-identity admission control: a token bucket
// (golang.org/x/time/rate) plus a cap on the caller's requests in flight.
// Identity is the API key fingerprint set by Auth, or the client IP.
//
// active reports renders currently holding a backend session. When
// cfg.MaxSessions is set and every slot is taken the request is refused
// with 503 before it reaches the backend.
func RateLimit(cfg config.RateLimitConfig, active func() int) gin.HandlerFunc {
	a := &admission{cfg: cfg, identities: make(map[string]*identityState)}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for now := range ticker.C {
			a.evictIdle(now.Add(-time.Hour))
		}
	}()

	return func(c *gin.Context) {
		if cfg.MaxSessions > 0 && active != nil && active() >= cfg.MaxSessions {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.RenderResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeBackendUnavailable,
					Message: "all browser sessions are busy",
				},
			})
			return
		}

		identity := c.GetString(identityKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		ok, reason := a.admit(identity, time.Now())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.RenderResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: reason,
				},
			})
			return
		}
		defer a.release(identity)

		c.Next()
	}
}
