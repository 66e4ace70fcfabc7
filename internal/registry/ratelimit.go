package registry

import (
	"sync"
	"time"
)

// RateLimitState tracks whether an upstream source is currently rate
// limiting us. It is a process-local latch: once set, callers back off
// until something observes a successful request and resets it.
type RateLimitState struct {
	mu      sync.Mutex
	limited bool
	reason  string
	since   time.Time
}

// NewRateLimitState returns an unlatched state.
func NewRateLimitState() *RateLimitState {
	return &RateLimitState{}
}

// IsLimited reports whether the latch is set.
func (s *RateLimitState) IsLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.limited
}

// SetLimited latches the rate-limited state with a reason. Setting an
// already latched state updates the reason but keeps the original start
// time.
func (s *RateLimitState) SetLimited(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limited {
		s.since = time.Now()
	}
	s.limited = true
	s.reason = reason
}

// Reset clears the latch.
func (s *RateLimitState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limited = false
	s.reason = ""
	s.since = time.Time{}
}

// Reason returns the latch reason, or "" when not limited.
func (s *RateLimitState) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reason
}

// Since returns how long the latch has been set, or zero when not
// limited.
func (s *RateLimitState) Since() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.limited {
		return 0
	}
	return time.Since(s.since)
}
