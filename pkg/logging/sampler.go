package logging

import (
	"log/slog"
	"sync"
)

// ErrorSampler keeps a flapping upstream from flooding the logs.
// The first failure for a key is logged, then every Nth one until the key is cleared.
type ErrorSampler struct {
	mu       sync.Mutex
	counts   map[string]int
	interval int
}

// NewErrorSampler creates a sampler that logs every interval-th repeat.
func NewErrorSampler(interval int) *ErrorSampler {
	if interval < 1 {
		interval = 10
	}
	return &ErrorSampler{
		counts:   make(map[string]int),
		interval: interval,
	}
}

// Sample records one occurrence of key and reports whether it should be logged.
func (s *ErrorSampler) Sample(key string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[key]++
	n := s.counts[key]
	return n == 1 || n%s.interval == 0, n
}

// Warn logs msg at warn level if the occurrence for key is sampled.
func (s *ErrorSampler) Warn(key, msg string, args ...any) {
	ok, n := s.Sample(key)
	if !ok {
		return
	}
	slog.Warn(msg, append(args, "occurrences", n)...)
}

// Count returns how many times key has been seen since it was last cleared.
func (s *ErrorSampler) Count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[key]
}

// Clear forgets key, typically after the upstream recovered.
func (s *ErrorSampler) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
}
