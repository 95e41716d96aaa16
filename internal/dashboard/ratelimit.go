package dashboard

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter applies a token-bucket request limit per client. It protects
// the chat endpoint from burst traffic before the daily quota even gets a
// say; the quota store remains the authority on total spend.
type RateLimiter struct {
	perMinute int
	buckets   map[string]*tokenBucket
	mu        sync.Mutex
	logger    *zap.Logger
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter allowing perMinute requests per client.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	rl := &RateLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*tokenBucket),
		logger:    logger,
	}
	if perMinute > 0 {
		go rl.cleanup()
	}
	return rl
}

// Middleware enforces the limit per client key
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.perMinute <= 0 {
			next.ServeHTTP(w, req)
			return
		}

		key := clientKey(req)
		if !r.allow(key) {
			r.logger.Warn("rate limit exceeded", zap.String("client", key))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
			return
		}
		next.ServeHTTP(w, req)
	})
}

// clientKey identifies the caller: the dashboard user header when present,
// the remote address otherwise.
func clientKey(req *http.Request) string {
	if id := req.Header.Get("X-User-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func (r *RateLimiter) allow(key string) bool {
	r.mu.Lock()
	bucket, exists := r.buckets[key]
	if !exists {
		bucket = &tokenBucket{
			tokens:     float64(r.perMinute),
			maxTokens:  float64(r.perMinute),
			refillRate: float64(r.perMinute) / 60.0,
			lastRefill: time.Now(),
		}
		r.buckets[key] = bucket
	}
	r.mu.Unlock()

	return bucket.consume(1)
}

func (b *tokenBucket) consume(count float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens < count {
		return false
	}
	b.tokens -= count
	return true
}

// cleanup drops buckets that have fully refilled, so idle clients do not
// accumulate forever.
func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		for key, bucket := range r.buckets {
			bucket.mu.Lock()
			full := bucket.tokens >= bucket.maxTokens
			idle := time.Since(bucket.lastRefill) > 10*time.Minute
			bucket.mu.Unlock()
			if full && idle {
				delete(r.buckets, key)
			}
		}
		r.mu.Unlock()
	}
}
