// Package inject places corrected text into the focused application. The
// manager writes the text to the system clipboard, walks an ordered list of
// delivery strategies until one succeeds, and restores the user's previous
// clipboard contents after a short delay. Every injection returns a [Report];
// the clipboard write means even a total strategy failure leaves the text one
// manual paste away.
package inject

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxkey/voxkey/internal/resilience"
)

// Defaults applied by [NewManager] for zero-valued config fields.
const (
	DefaultStrategyTimeout = 1 * time.Second
	DefaultRestoreDelay    = time.Second
)

// ErrNoStrategies is returned by [NewManager] when none of the supplied
// strategies is available on this machine.
var ErrNoStrategies = errors.New("inject: no available strategies")

// Outcome classifies how an injection ended.
type Outcome int

const (
	// OutcomeDelivered means a strategy confirmed delivery.
	OutcomeDelivered Outcome = iota

	// OutcomeClipboardOnly means every strategy failed but the text sits on
	// the clipboard ready for a manual paste.
	OutcomeClipboardOnly

	// OutcomeFailed means the clipboard write itself failed too.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeClipboardOnly:
		return "clipboard-only"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt records one strategy try within an injection.
type Attempt struct {
	Strategy string
	Err      error
	Elapsed  time.Duration
}

// Report is the result of one Inject call.
type Report struct {
	Outcome  Outcome
	Strategy string // the strategy that delivered, empty otherwise
	Attempts []Attempt
}

// Config holds manager parameters.
type Config struct {
	// StrategyTimeout bounds each strategy attempt. Zero defaults to 1s.
	StrategyTimeout time.Duration

	// RestoreDelay is how long after a successful injection the previous
	// clipboard contents are restored. Zero defaults to 1s.
	RestoreDelay time.Duration

	// BreakerFailures and BreakerCooldown tune the per-strategy breakers;
	// zero values use the resilience package defaults.
	BreakerFailures int
	BreakerCooldown time.Duration
}

// Option configures optional manager behaviour.
type Option func(*Manager)

// WithLogger overrides the manager's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager serialises injections and owns the clipboard restore timer.
// Safe for concurrent use; concurrent Inject calls run one at a time so
// keystrokes from different utterances cannot interleave.
type Manager struct {
	cfg        Config
	clip       Clipboard
	strategies []Strategy
	breakers   map[string]*resilience.Breaker
	log        *slog.Logger

	mu  sync.Mutex
	gen atomic.Uint64

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewManager filters strategies down to the available ones and builds a
// breaker for each. It fails only when nothing can deliver text at all.
func NewManager(clip Clipboard, strategies []Strategy, cfg Config, opts ...Option) (*Manager, error) {
	if cfg.StrategyTimeout <= 0 {
		cfg.StrategyTimeout = DefaultStrategyTimeout
	}
	if cfg.RestoreDelay <= 0 {
		cfg.RestoreDelay = DefaultRestoreDelay
	}

	m := &Manager{
		cfg:      cfg,
		clip:     clip,
		breakers: make(map[string]*resilience.Breaker),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, s := range strategies {
		if !s.Available() {
			m.log.Debug("injection strategy unavailable", "strategy", s.Name())
			continue
		}
		m.strategies = append(m.strategies, s)
		m.breakers[s.Name()] = resilience.NewBreaker(resilience.Config{
			Name:        s.Name(),
			MaxFailures: cfg.BreakerFailures,
			Cooldown:    cfg.BreakerCooldown,
		})
	}
	if len(m.strategies) == 0 {
		return nil, ErrNoStrategies
	}
	m.log.Info("injection manager ready",
		"strategies", len(m.strategies),
		"first", m.strategies[0].Name())
	return m, nil
}

// Inject delivers text to the focused application. Empty text is a no-op.
//
// The previous clipboard contents are snapshotted before the write and
// restored RestoreDelay later, unless another injection supersedes the
// pending restore first; the newer injection then owns the original snapshot
// chain's final state.
func (m *Manager) Inject(ctx context.Context, text string) Report {
	if text == "" {
		return Report{Outcome: OutcomeDelivered}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	gen := m.gen.Add(1)
	m.stopRestore()

	snapshot, snapErr := m.clip.Read(ctx)
	if snapErr != nil {
		m.log.Warn("clipboard snapshot failed, skipping restore", "err", snapErr)
	}
	writeErr := m.clip.Write(ctx, text)
	if writeErr != nil {
		m.log.Warn("clipboard write failed", "err", writeErr)
	}

	report := m.deliver(ctx, text)
	if report.Outcome != OutcomeDelivered && writeErr == nil {
		report.Outcome = OutcomeClipboardOnly
	} else if report.Outcome != OutcomeDelivered {
		report.Outcome = OutcomeFailed
	}

	if writeErr == nil && snapErr == nil {
		m.scheduleRestore(gen, snapshot)
	}
	return report
}

// deliver walks the strategies in order until one succeeds.
func (m *Manager) deliver(ctx context.Context, text string) Report {
	var report Report
	report.Outcome = OutcomeFailed

	for _, s := range m.strategies {
		br := m.breakers[s.Name()]
		if !br.Allow() {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, m.cfg.StrategyTimeout)
		start := time.Now()
		err := s.Inject(attemptCtx, text)
		cancel()

		report.Attempts = append(report.Attempts, Attempt{
			Strategy: s.Name(),
			Err:      err,
			Elapsed:  time.Since(start),
		})
		if err != nil {
			br.RecordFailure()
			m.log.Debug("injection strategy failed", "strategy", s.Name(), "err", err)
			continue
		}
		br.RecordSuccess()
		report.Outcome = OutcomeDelivered
		report.Strategy = s.Name()
		return report
	}
	return report
}

// scheduleRestore arms the restore timer for this injection's generation.
// A later injection bumps the generation, so a stale timer that still fires
// does nothing.
func (m *Manager) scheduleRestore(gen uint64, snapshot string) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	m.timer = time.AfterFunc(m.cfg.RestoreDelay, func() {
		if m.gen.Load() != gen {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StrategyTimeout)
		defer cancel()
		if err := m.clip.Write(ctx, snapshot); err != nil {
			m.log.Warn("clipboard restore failed", "err", err)
		}
	})
}

func (m *Manager) stopRestore() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Close cancels any pending clipboard restore.
func (m *Manager) Close() {
	m.gen.Add(1)
	m.stopRestore()
}
