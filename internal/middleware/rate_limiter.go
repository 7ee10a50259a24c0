package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/edcadet10/tikes/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// windowEntry tracks request counts per client IP within a sliding window.
type windowEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type limiter struct {
	entries map[string]*windowEntry
	mu      sync.Mutex
	limit   int
	window  time.Duration
}

func newLimiter(limit int, window time.Duration) *limiter {
	return &limiter{entries: make(map[string]*windowEntry), limit: limit, window: window}
}

func (l *limiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	entry, ok := l.entries[ip]
	if !ok {
		entry = &windowEntry{}
		l.entries[ip] = entry
	}
	l.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(l.window)
	}
	entry.count++
	return entry.count <= l.limit, entry.windowEnd
}

func (l *limiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, entry := range l.entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged
}

var (
	loginLimiter *limiter
	apiLimiter   *limiter
	limiterOnce  sync.Once
)

const purgeInterval = 5 * time.Minute

func initLimiters(apiLimit int, apiWindow time.Duration) {
	limiterOnce.Do(func() {
		loginLimiter = newLimiter(20, time.Minute)
		apiLimiter = newLimiter(apiLimit, apiWindow)
		go func() {
			ticker := time.NewTicker(purgeInterval)
			defer ticker.Stop()
			for range ticker.C {
				now := time.Now()
				n := loginLimiter.purge(now) + apiLimiter.purge(now)
				if n > 0 {
					log.Debug().Int("purged", n).Msg("rate limiter entries purged")
				}
			}
		}()
	})
}

// LoginRateLimiter limits login attempts to 20 per minute per IP — PIN
// guessing is the main abuse vector on a 4-digit credential.
func LoginRateLimiter() gin.HandlerFunc {
	initLimiters(1000, time.Minute)
	return func(c *gin.Context) {
		ok, _ := loginLimiter.allow(c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many login attempts. Try again in a minute."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose sliding-window rate limiter applied
// to the whole API surface.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	initLimiters(limit, window)
	return func(c *gin.Context) {
		ok, windowEnd := apiLimiter.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many requests. Try again shortly."))
			return
		}
		c.Next()
	}
}
