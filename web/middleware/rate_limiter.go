package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MessagesPerMinute int           // Sustained requests per session per minute
	BurstSize         int           // Allow burst of N requests
	CleanupInterval   time.Duration // How often idle buckets are dropped
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// refill must be called with tb.mu held.
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now
}

// Allow checks if a request can proceed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the number of tokens remaining
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	return int(tb.tokens)
}

// idle reports whether the bucket has fully refilled, meaning its session
// has not been limited recently.
func (tb *TokenBucket) idle() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	return tb.tokens >= tb.maxTokens
}

// SessionRateLimiter manages rate limits per session
type SessionRateLimiter struct {
	config      RateLimiterConfig
	buckets     map[uuid.UUID]*TokenBucket
	mu          sync.Mutex
	logger      *zap.Logger
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSessionRateLimiter creates a new session-based rate limiter. Call Stop
// to end its cleanup goroutine.
func NewSessionRateLimiter(config RateLimiterConfig, logger *zap.Logger) *SessionRateLimiter {
	if config.BurstSize < 1 {
		config.BurstSize = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	limiter := &SessionRateLimiter{
		config:      config,
		buckets:     make(map[uuid.UUID]*TokenBucket),
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	go limiter.cleanupRoutine()

	return limiter
}

func (srl *SessionRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(srl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			srl.cleanup()
		case <-srl.stopCleanup:
			return
		}
	}
}

// cleanup drops buckets that have fully refilled.
func (srl *SessionRateLimiter) cleanup() {
	srl.mu.Lock()
	defer srl.mu.Unlock()

	removed := 0
	for id, bucket := range srl.buckets {
		if bucket.idle() {
			delete(srl.buckets, id)
			removed++
		}
	}
	if removed > 0 {
		srl.logger.Debug("Dropped idle rate limit buckets", zap.Int("removed", removed), zap.Int("remaining", len(srl.buckets)))
	}
}

// Stop stops the cleanup routine
func (srl *SessionRateLimiter) Stop() {
	srl.stopOnce.Do(func() { close(srl.stopCleanup) })
}

// Allow checks if a request can be made for the given session
func (srl *SessionRateLimiter) Allow(sessionID uuid.UUID) bool {
	return srl.bucket(sessionID).Allow()
}

// Remaining returns remaining tokens and the burst limit for a session
func (srl *SessionRateLimiter) Remaining(sessionID uuid.UUID) (remaining int, limit int) {
	return srl.bucket(sessionID).Remaining(), srl.config.BurstSize
}

func (srl *SessionRateLimiter) bucket(sessionID uuid.UUID) *TokenBucket {
	srl.mu.Lock()
	defer srl.mu.Unlock()

	bucket, exists := srl.buckets[sessionID]
	if !exists {
		// BurstSize tokens, refill at MessagesPerMinute/60 per second
		refillRate := float64(srl.config.MessagesPerMinute) / 60.0
		bucket = NewTokenBucket(float64(srl.config.BurstSize), refillRate)
		srl.buckets[sessionID] = bucket
	}
	return bucket
}

// RateLimitMiddleware creates a Gin middleware limiting requests per session.
// SessionMiddleware must run first.
func RateLimitMiddleware(limiter *SessionRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionIDValue, exists := c.Get(SessionIDKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session not initialized"})
			return
		}
		sessionID := sessionIDValue.(uuid.UUID)

		allowed := limiter.Allow(sessionID)
		remaining, limit := limiter.Remaining(sessionID)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			limiter.logger.Warn("Rate limit exceeded",
				zap.String("session_id", sessionID.String()),
				zap.Int("limit", limit))

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests, please slow down.",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
