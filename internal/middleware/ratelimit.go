// Package middleware holds the HTTP middleware of the block engine server.
package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate int // tokens per second
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewTokenBucket creates a full bucket
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Take consumes one token when available and returns the tokens left
func (tb *TokenBucket) Take() (bool, int) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*float64(tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true, int(tb.tokens)
	}
	return false, 0
}

// Allow reports whether a request may proceed
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.Take()
	return ok
}

// retryAfter is the wait until the next token, in whole seconds
func (tb *TokenBucket) retryAfter() int {
	if tb.refillRate <= 0 {
		return 60
	}
	return 1
}

type limit struct {
	capacity   int
	refillRate int
}

// RateLimiter keeps one bucket per client and route class
type RateLimiter struct {
	buckets map[string]*TokenBucket
	mutex   sync.RWMutex

	defaultLimit limit
	// keyed by route prefix
	routeLimits map[string]limit
}

// NewRateLimiter creates a limiter allowing rps requests per second with bursts of burst
func NewRateLimiter(rps, burst int) *RateLimiter {
	rps = max(rps, 1)
	burst = max(burst, 1)
	return &RateLimiter{
		buckets:      make(map[string]*TokenBucket),
		defaultLimit: limit{burst, rps},
		routeLimits: map[string]limit{
			// transformations do the real work
			"/v1/interactions": {burst, rps},
			"/v1/suggestions":  {burst * 2, rps * 2},
			"/v1/documents":    {burst * 2, rps * 2},
			"/v1/rules":        {max(burst/2, 1), max(rps/2, 1)},
			"/health":          {20, 2},
			"/metrics":         {20, 2},
		},
	}
}

// routeClass maps a path onto the prefix its limit is keyed by, so every document
// id shares one bucket
func (rl *RateLimiter) routeClass(path string) (string, limit) {
	for prefix, l := range rl.routeLimits {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return prefix, l
		}
	}
	return "*", rl.defaultLimit
}

func (rl *RateLimiter) getBucket(clientID, path string) (*TokenBucket, string) {
	class, l := rl.routeClass(path)
	key := clientID + ":" + class

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()
	if exists {
		return bucket, class
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	if bucket, exists := rl.buckets[key]; exists {
		return bucket, class
	}
	bucket = NewTokenBucket(l.capacity, l.refillRate)
	rl.buckets[key] = bucket
	return bucket, class
}

func clientID(c *fiber.Ctx) string {
	if apiKey := c.Get("X-API-Key"); apiKey != "" {
		return "api:" + apiKey
	}
	return "ip:" + c.IP()
}

// Middleware returns a Fiber middleware for rate limiting
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := clientID(c)
		bucket, class := rl.getBucket(client, c.Path())

		ok, remaining := bucket.Take()
		c.Set("X-RateLimit-Limit", strconv.Itoa(bucket.capacity))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if ok {
			return c.Next()
		}

		wait := bucket.retryAfter()
		appErr := domain.NewAppError(
			domain.ErrRateLimit,
			"Rate limit exceeded",
			429,
			map[string]any{
				"client_id":   client,
				"route":       class,
				"retry_after": wait,
			},
		).WithContext(c.UserContext(), "rate_limit")

		c.Set("Retry-After", strconv.Itoa(wait))
		return c.Status(appErr.StatusCode).JSON(fiber.Map{
			"status":  "error",
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}
}

// CleanupOldBuckets drops buckets idle for more than an hour
func (rl *RateLimiter) CleanupOldBuckets() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mutex.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine cleans up idle buckets every ten minutes until stop is
// called. stop may be called more than once.
func (rl *RateLimiter) StartCleanupRoutine() (stop func()) {
	ticker := time.NewTicker(10 * time.Minute)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				rl.CleanupOldBuckets()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	routes := make(map[string]any, len(rl.routeLimits))
	for prefix, l := range rl.routeLimits {
		routes[prefix] = map[string]int{"capacity": l.capacity, "refill_rate": l.refillRate}
	}
	return map[string]any{
		"active_buckets":      len(rl.buckets),
		"default_capacity":    rl.defaultLimit.capacity,
		"default_refill_rate": rl.defaultLimit.refillRate,
		"route_limits":        routes,
	}
}
