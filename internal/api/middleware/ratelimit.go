package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/policychat/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimitConfig controls per-client request rates
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type limiterPool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg RateLimitConfig
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]*rate.Limiter)
	}
	if l, ok := p.m[key]; ok {
		return l
	}
	rpm := p.cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
	p.m[key] = l
	return l
}

// RateLimit rejects clients that exceed the configured rate with 429
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	pool := &limiterPool{cfg: cfg}
	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": domain.ErrRateLimited.Error()})
			return
		}
		c.Next()
	}
}
