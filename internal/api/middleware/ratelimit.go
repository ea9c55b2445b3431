package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"internship-hub/internal/api/response"
)

// window keeps the request times of one key inside the sliding window.
type window struct {
	mu    sync.Mutex
	times []time.Time
}

type limiter struct {
	limit   int
	period  time.Duration
	now     func() time.Time
	windows sync.Map
}

func newLimiter(limit int, period time.Duration) *limiter {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}
	return &limiter{limit: limit, period: period, now: time.Now}
}

// allow records a hit for key and reports whether it fits the window. When
// it does not, retryAfter tells how long until the oldest hit expires.
func (l *limiter) allow(key string) (ok bool, retryAfter time.Duration) {
	entryAny, _ := l.windows.LoadOrStore(key, &window{})
	entry := entryAny.(*window)

	now := l.now()
	cutoff := now.Add(-l.period)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	kept := entry.times[:0]
	for _, ts := range entry.times {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.times = kept

	if len(entry.times) >= l.limit {
		return false, entry.times[0].Add(l.period).Sub(now)
	}
	entry.times = append(entry.times, now)
	return true, 0
}

// RateLimit caps requests per key inside a sliding window. The key may use
// the {user_id} and {ip} placeholders, or be "ip" / "user_id".
func RateLimit(key string, limit int, period time.Duration) gin.HandlerFunc {
	l := newLimiter(limit, period)

	return func(c *gin.Context) {
		ok, retryAfter := l.allow(resolveRateLimitKey(c, key))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			response.Abort(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}

func resolveRateLimitKey(c *gin.Context, template string) string {
	userID := ""
	if claims, ok := GetClaims(c); ok {
		userID = claims.UserID
	}

	switch template {
	case "", "ip":
		return "ip:" + c.ClientIP()
	case "user_id":
		if userID == "" {
			return "user_id:anonymous:" + c.ClientIP()
		}
		return "user_id:" + userID
	default:
		return strings.NewReplacer("{ip}", c.ClientIP(), "{user_id}", userID).Replace(template)
	}
}
