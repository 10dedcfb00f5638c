// Package clarity corrects recognizer output before it reaches the active
// application. Three passes run in order: literal jargon replacement,
// context-conditioned homophone substitution, and an optional phonetic
// vocabulary match. All passes are deterministic, so correcting the same text
// twice yields the same result and correcting already-correct text is a
// no-op.
//
// An Engine owns a bounded queue drained by a single worker goroutine, which
// keeps asynchronous results in submission order without any further
// synchronisation. Synchronous correction is available via [Engine.Correct]
// for callers that need the result inline.
package clarity

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueSize bounds the asynchronous correction queue when Config
// leaves it zero.
const DefaultQueueSize = 64

var (
	// ErrQueueFull is returned by Submit when the queue is at capacity.
	// Callers decide whether to drop the text or fall back to Correct.
	ErrQueueFull = errors.New("clarity: correction queue is full")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("clarity: engine is closed")
)

// Correction records one applied substitution.
type Correction struct {
	Original  string
	Corrected string
}

// Result is the outcome of correcting one piece of text.
type Result struct {
	Original    string
	Corrected   string
	Confidence  float64
	Elapsed     time.Duration
	Corrections []Correction
}

// Changed reports whether any pass altered the text.
func (r Result) Changed() bool {
	return r.Corrected != r.Original
}

// Config holds engine parameters.
type Config struct {
	// RuleBased enables the jargon and homophone passes. Disabled, the engine
	// passes text through untouched (aside from any vocabulary pass), which is
	// useful for A/B-ing the recognizer on its own.
	RuleBased bool

	// QueueSize bounds Submit's queue. Zero defaults to 64.
	QueueSize int
}

// Option configures optional engine behaviour.
type Option func(*Engine)

// WithVocabulary adds a phonetic vocabulary pass that snaps misrecognised
// words to the caller's domain terms.
func WithVocabulary(v *Vocabulary) Option {
	return func(e *Engine) { e.vocab = v }
}

// WithLogger overrides the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

type task struct {
	text string
	cb   func(Result)
}

// Engine applies correction passes, either synchronously or through a
// single-worker queue. Methods are safe for concurrent use.
type Engine struct {
	cfg   Config
	vocab *Vocabulary
	log   *slog.Logger

	queue     chan task
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// processFn is the pass chain invoked by the worker; replaceable in tests.
	processFn func(string) Result
}

// New starts an Engine and its worker goroutine. Call Close to stop it.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	e := &Engine{
		cfg:    cfg,
		log:    slog.Default(),
		queue:  make(chan task, cfg.QueueSize),
		closed: make(chan struct{}),
	}
	e.processFn = e.process
	for _, opt := range opts {
		opt(e)
	}
	e.wg.Add(1)
	go e.worker()
	return e
}

// Correct runs all passes synchronously and returns the result.
func (e *Engine) Correct(text string) Result {
	return e.process(text)
}

// Submit enqueues text for asynchronous correction. cb is invoked from the
// worker goroutine, exactly once per accepted submission, in submission
// order. Submit never blocks: a full queue yields ErrQueueFull and the text
// is not enqueued.
func (e *Engine) Submit(text string, cb func(Result)) error {
	select {
	case <-e.closed:
		return ErrClosed
	default:
	}
	select {
	case e.queue <- task{text: text, cb: cb}:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of submissions waiting for the worker.
func (e *Engine) QueueDepth() int {
	return len(e.queue)
}

// Close stops accepting submissions, drains tasks already queued, and waits
// for the worker to exit. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() { close(e.closed) })
	e.wg.Wait()
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case t := <-e.queue:
			e.run(t)
		case <-e.closed:
			// Drain whatever was accepted before Close.
			for {
				select {
				case t := <-e.queue:
					e.run(t)
				default:
					return
				}
			}
		}
	}
}

// run corrects one task. The callback is invoked even when a pass panics: the
// caller then receives the text unchanged rather than losing the utterance.
func (e *Engine) run(t task) {
	res := e.safeProcess(t.text)
	if t.cb != nil {
		t.cb(res)
	}
}

func (e *Engine) safeProcess(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("correction pass panicked, passing text through", "panic", r)
			res = Result{Original: text, Corrected: text}
		}
	}()
	return e.processFn(text)
}

func (e *Engine) process(text string) Result {
	start := time.Now()
	corrected := text
	var corrections []Correction

	if e.cfg.RuleBased {
		var c []Correction
		corrected, c = applyJargon(corrected)
		corrections = append(corrections, c...)
		corrected, c = applyHomophones(corrected)
		corrections = append(corrections, c...)
	}
	if e.vocab != nil {
		var c []Correction
		corrected, c = e.vocab.Apply(corrected)
		corrections = append(corrections, c...)
	}

	confidence := 0.8
	if len(corrections) > 0 {
		confidence = 0.9
	}
	return Result{
		Original:    text,
		Corrected:   corrected,
		Confidence:  confidence,
		Elapsed:     time.Since(start),
		Corrections: corrections,
	}
}
