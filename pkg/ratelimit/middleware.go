package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"cablesync/internal/config"
	"cablesync/pkg/metrics"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		RPS:             2.0,
		Burst:           5,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromSettings applies the non-zero values of cfg over DefaultConfig. Intervals
// in cfg are whole seconds.
func FromSettings(cfg config.RateLimitConfig) Config {
	c := DefaultConfig()
	if cfg.RPS > 0 {
		c.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		c.Burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		c.CleanupInterval = time.Duration(cfg.CleanupInterval) * time.Second
	}
	if cfg.MaxAge > 0 {
		c.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return c
}

// Store keeps one token bucket per client IP.
type Store struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

func NewStore(cfg Config) *Store {
	return &Store{
		cfg:     cfg,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Run evicts idle clients until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evict()
		}
	}
}

func (s *Store) evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	now := s.now()
	for ip, c := range s.clients {
		if now.Sub(c.lastSeen) > s.cfg.MaxAge {
			delete(s.clients, ip)
			evicted++
		}
	}
	return evicted
}

func (s *Store) allow(ip string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.clients[ip] = c
	}
	c.lastSeen = s.now()

	allowed := c.limiter.Allow()
	remaining := int(c.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

func (s *Store) Middleware() gin.HandlerFunc {
	limit := strconv.FormatFloat(s.cfg.RPS, 'f', -1, 64)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}

		allowed, remaining := s.allow(ip)
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.IncRateLimit("limited")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.IncRateLimit("allowed")
		c.Next()
	}
}
