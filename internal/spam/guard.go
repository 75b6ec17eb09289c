// Package spam throttles chat senders that post faster than a sliding
// window allows. It knows nothing about game accounts.
package spam

import (
	"sync"
	"time"
)

// Verdict is the outcome of a Check.
type Verdict int

const (
	// Allowed means the message may be processed.
	Allowed Verdict = iota
	// JustBlocked means this message pushed the sender over the limit.
	JustBlocked
	// StillBlocked means the sender is inside an earlier block.
	StillBlocked
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case JustBlocked:
		return "just_blocked"
	case StillBlocked:
		return "still_blocked"
	default:
		return "unknown"
	}
}

// Defaults used when a Config field is zero.
const (
	DefaultWindow = 5 * time.Second
	DefaultLimit  = 8
	DefaultBlock  = 30 * time.Second
)

// Config tunes a Guard.
type Config struct {
	Window time.Duration
	Limit  int
	Block  time.Duration
}

type sender struct {
	stamps       []time.Time
	blockedUntil time.Time
}

// Guard is a per-sender sliding-window limiter with a temporary block.
type Guard struct {
	mu      sync.Mutex
	cfg     Config
	senders map[string]*sender
}

// NewGuard creates a Guard, filling zero config fields with defaults.
func NewGuard(cfg Config) *Guard {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Block <= 0 {
		cfg.Block = DefaultBlock
	}
	return &Guard{
		cfg:     cfg,
		senders: make(map[string]*sender),
	}
}

// Check records a message from id at now and returns the verdict.
func (g *Guard) Check(id string, now time.Time) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.senders[id]
	if s == nil {
		s = &sender{}
		g.senders[id] = s
	}

	if now.Before(s.blockedUntil) {
		return StillBlocked
	}

	cutoff := now.Add(-g.cfg.Window)
	kept := s.stamps[:0]
	for _, ts := range s.stamps {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.stamps = append(kept, now)

	if len(s.stamps) > g.cfg.Limit {
		s.blockedUntil = now.Add(g.cfg.Block)
		s.stamps = s.stamps[:0]
		return JustBlocked
	}
	return Allowed
}

// BlockedUntil returns the block expiry for id, or the zero time.
func (g *Guard) BlockedUntil(id string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s := g.senders[id]; s != nil {
		return s.blockedUntil
	}
	return time.Time{}
}

// Sweep forgets senders with no block and no message inside the window.
// It returns how many were dropped.
func (g *Guard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.cfg.Window)
	dropped := 0
	for id, s := range g.senders {
		if now.Before(s.blockedUntil) {
			continue
		}
		if n := len(s.stamps); n > 0 && !s.stamps[n-1].Before(cutoff) {
			continue
		}
		delete(g.senders, id)
		dropped++
	}
	return dropped
}

// Tracked returns the number of senders with state.
func (g *Guard) Tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.senders)
}
