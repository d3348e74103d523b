package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleAfter is how long a client's bucket survives without requests.
const idleAfter = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client IP.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewClientLimiter allows perMinute requests per client with the given burst.
func NewClientLimiter(perMinute, burst int) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*clientBucket),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *ClientLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[key]
	if !ok {
		l.evict(now)
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evict drops idle buckets; called under mu when a new client appears.
func (l *ClientLimiter) evict(now time.Time) {
	for k, b := range l.clients {
		if now.Sub(b.lastSeen) > idleAfter {
			delete(l.clients, k)
		}
	}
}

// RateLimit rejects clients that exceed the limiter with 429.
func RateLimit(l *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}
