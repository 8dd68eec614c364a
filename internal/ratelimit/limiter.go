// Package ratelimit paces requests to the remote document-store API and
// honors server-imposed backoff.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter applies a client-side token bucket per endpoint and respects
// Retry-After responses from the server.
type Limiter struct {
	buckets   map[string]*bucket
	mu        sync.Mutex
	perSecond rate.Limit
	burst     int
	logger    *zap.Logger
}

type bucket struct {
	limiter    *rate.Limiter
	retryAfter time.Time
	mu         sync.Mutex
}

// New creates a limiter allowing perSecond requests with the given burst
// per endpoint.
func New(perSecond float64, burst int, logger *zap.Logger) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		logger:    logger,
	}
}

func (l *Limiter) getBucket(endpoint string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[endpoint]; ok {
		return b
	}

	b := &bucket{limiter: rate.NewLimiter(l.perSecond, l.burst)}
	l.buckets[endpoint] = b
	return b
}

// Wait blocks until a request to endpoint may proceed, or ctx is done.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	b := l.getBucket(endpoint)

	b.mu.Lock()
	until := b.retryAfter
	b.mu.Unlock()

	if wait := time.Until(until); wait > 0 {
		l.logger.Warn("backing off after server rate limit",
			zap.String("endpoint", endpoint),
			zap.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return b.limiter.Wait(ctx)
}

// Observe records rate-limit feedback from a response. A 429 with a
// Retry-After header pushes back the next allowed request for the endpoint.
func (l *Limiter) Observe(endpoint string, resp *http.Response) {
	if resp.StatusCode != http.StatusTooManyRequests {
		return
	}

	delay := 1 * time.Second
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}

	b := l.getBucket(endpoint)
	b.mu.Lock()
	b.retryAfter = time.Now().Add(delay)
	b.mu.Unlock()

	l.logger.Warn("server rate limit hit",
		zap.String("endpoint", endpoint),
		zap.Duration("retry_after", delay),
	)
}
