package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Sandbox admission errors.
var (
	// ErrRateLimited indicates the per-minute task admission cap was hit.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrPayloadTooLarge indicates the serialized payload exceeds the cap.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// sandbox is the per-agent execution context set up during Initialize:
// a rate-limit counter, the allowed-command whitelist and payload size
// limits. It is owned by one agent and never shared.
type sandbox struct {
	maxPayloadBytes int
	ratePerMinute   int
	allowed         map[string]bool

	mu          sync.Mutex
	windowStart time.Time
	admitted    int
}

func newSandbox(cfg Config) *sandbox {
	allowed := make(map[string]bool, len(cfg.AllowedCommands))
	for _, c := range cfg.AllowedCommands {
		allowed[c] = true
	}
	return &sandbox{
		maxPayloadBytes: cfg.MaxPayloadBytes,
		ratePerMinute:   cfg.RateLimitPerMinute,
		allowed:         allowed,
		windowStart:     time.Now(),
	}
}

// admit checks the payload size and the rate-limit window before a task
// is accepted.
func (s *sandbox) admit(payload any) error {
	if s.maxPayloadBytes > 0 && payload != nil {
		data, err := json.Marshal(payload)
		if err == nil && len(data) > s.maxPayloadBytes {
			return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), s.maxPayloadBytes)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.windowStart) >= time.Minute {
		s.windowStart = now
		s.admitted = 0
	}
	if s.ratePerMinute > 0 && s.admitted >= s.ratePerMinute {
		return ErrRateLimited
	}
	s.admitted++
	return nil
}

// commandAllowed reports whether a command is in the whitelist. An empty
// whitelist allows everything.
func (s *sandbox) commandAllowed(cmd string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	return s.allowed[cmd]
}
