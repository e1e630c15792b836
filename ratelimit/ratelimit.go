package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/greenpoints/greenledger/exception"
)

// Config holds configuration for one sliding window limiter.
type Config struct {
	MaxRequests     int           // Maximum number of requests allowed per window; 0 disables the limit
	WindowSize      time.Duration // Time window for rate limiting
	CleanupInterval time.Duration // How often to drop idle keys
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		MaxRequests:     10,
		WindowSize:      time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter implements sliding window rate limiting per key.
type Limiter struct {
	config   Config
	clock    func() time.Time
	mu       sync.Mutex
	requests map[string][]time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter and its cleanup loop. Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}
	l := &Limiter{
		config:   config,
		clock:    time.Now,
		requests: make(map[string][]time.Time),
		stop:     make(chan struct{}),
	}
	exception.SafeGo("RateLimiterCleanup", l.cleanupLoop)
	return l
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.config.MaxRequests <= 0 {
		return true
	}
	now := l.clock()
	cutoff := now.Add(-l.config.WindowSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := trim(l.requests[key], cutoff)
	if len(valid) >= l.config.MaxRequests {
		l.requests[key] = valid
		return false
	}
	l.requests[key] = append(valid, now)
	return true
}

// Count returns how many requests of key fall in the current window.
func (l *Limiter) Count(key string) int {
	cutoff := l.clock().Add(-l.config.WindowSize)
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(trim(l.requests[key], cutoff))
}

// trim drops timestamps at or before cutoff. Timestamps are appended in
// order, so the survivors are a suffix.
func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := l.clock().Add(-l.config.WindowSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, ts := range l.requests {
		if valid := trim(ts, cutoff); len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}

// Stop stops the cleanup goroutine
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
}

// SubmissionConfig limits requests per client IP and transaction
// submissions per sender address.
type SubmissionConfig struct {
	IP     Config
	Sender Config
}

// SubmissionLimiter applies the IP and sender limits together.
type SubmissionLimiter struct {
	ip     *Limiter
	sender *Limiter
}

func NewSubmissionLimiter(config SubmissionConfig) *SubmissionLimiter {
	return &SubmissionLimiter{
		ip:     NewLimiter(config.IP),
		sender: NewLimiter(config.Sender),
	}
}

// AllowIP checks the per-IP limit.
func (s *SubmissionLimiter) AllowIP(ip string) error {
	if s == nil || s.ip.Allow(ip) {
		return nil
	}
	return &RateLimitError{Type: "ip", Key: ip}
}

// AllowSender checks the per-sender limit.
func (s *SubmissionLimiter) AllowSender(sender string) error {
	if s == nil || s.sender.Allow(sender) {
		return nil
	}
	return &RateLimitError{Type: "sender", Key: sender}
}

func (s *SubmissionLimiter) Stop() {
	if s == nil {
		return
	}
	s.ip.Stop()
	s.sender.Stop()
}

// RateLimitError represents a rate limit error
type RateLimitError struct {
	Type string
	Key  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s '%s'", e.Type, e.Key)
}
