// Package resilience tracks the health of external tools the injector shells
// out to. A [Breaker] skips a strategy after repeated consecutive failures
// and lets a single probe through once a cooldown has elapsed, so a missing
// or broken tool costs one exec attempt per cooldown instead of one per
// utterance.
//
// All types are safe for concurrent use.
package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// Defaults applied by [NewBreaker] for zero-valued config fields.
const (
	DefaultMaxFailures = 3
	DefaultCooldown    = 10 * time.Second
)

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed lets all calls through.
	StateClosed State = iota

	// StateOpen rejects calls until the cooldown elapses.
	StateOpen

	// StateProbing lets one call through to test whether the tool recovered.
	StateProbing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// Config tunes a [Breaker].
type Config struct {
	// Name labels the breaker in log output, typically the tool name.
	Name string

	// MaxFailures is the number of consecutive failures before the breaker
	// opens. Zero defaults to 3.
	MaxFailures int

	// Cooldown is how long the breaker stays open before allowing a probe.
	// Zero defaults to 10s.
	Cooldown time.Duration
}

// Breaker gates calls to one external tool.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	log         *slog.Logger

	mu       sync.Mutex
	failures int
	openedAt time.Time
	probing  bool

	// now is overridable in tests.
	now func() time.Time
}

// NewBreaker returns a closed Breaker.
func NewBreaker(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		log:         slog.Default(),
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed. When the breaker is open and the
// cooldown has elapsed, Allow admits exactly one probe; further calls are
// rejected until that probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.maxFailures {
		return true
	}
	if b.probing {
		return false
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		b.probing = true
		b.log.Debug("breaker admitting probe", "name", b.name)
		return true
	}
	return false
}

// RecordSuccess closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures >= b.maxFailures {
		b.log.Info("breaker closed after successful probe", "name", b.name)
	}
	b.failures = 0
	b.probing = false
}

// RecordFailure counts one failure, opening (or re-opening) the breaker once
// the threshold is reached. A failed probe restarts the cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.probing = false
	if b.failures == b.maxFailures {
		b.openedAt = b.now()
		b.log.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
	} else if b.failures > b.maxFailures {
		// Failed probe.
		b.openedAt = b.now()
	}
}

// State returns the breaker's current mode.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.failures < b.maxFailures:
		return StateClosed
	case b.probing || b.now().Sub(b.openedAt) >= b.cooldown:
		return StateProbing
	default:
		return StateOpen
	}
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
}
