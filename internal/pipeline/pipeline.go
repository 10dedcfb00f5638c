// Package pipeline wires the dictation stages together: capture chunks are
// resampled and framed, the voice activity detector cuts speech segments,
// segments are transcribed, transcripts corrected, and corrected text
// injected into the focused application.
//
// Concurrency model: one goroutine owns the audio path end to end (resampler,
// framer, detector and segment assembly are not thread-safe and never need to
// be). Transcription runs on a second worker so a slow recogniser does not
// stall frame processing, and injection runs on a third so keystroke delivery
// cannot hold up correction. Segment order is preserved at every hop because
// each stage is a single worker draining a channel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxkey/voxkey/internal/bridge"
	"github.com/voxkey/voxkey/internal/clarity"
	"github.com/voxkey/voxkey/internal/inject"
	"github.com/voxkey/voxkey/internal/observe"
	"github.com/voxkey/voxkey/internal/vad"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/audio/resample"
	"github.com/voxkey/voxkey/pkg/provider/stt"
)

// Defaults applied by [New] for zero-valued config fields.
const (
	DefaultPreRoll    = 200 * time.Millisecond
	DefaultMaxSegment = 30 * time.Second
)

// Publisher receives pipeline events for UI consumption. Implementations
// must not block.
type Publisher interface {
	Publish(ev bridge.Event)
}

// Config holds the audio-path parameters.
type Config struct {
	// InputRate is the capture sample rate in Hz. Every incoming
	// [audio.AudioFrame] must carry this rate; frames carry their own
	// channel count and stereo frames are down-mixed on arrival.
	InputRate int

	// TargetRate is the rate the recogniser expects.
	TargetRate int

	// Quality selects the resampler filter length.
	Quality resample.Quality

	// VAD tunes the voice activity detector. SampleRate and Clock are set by
	// the pipeline: detection runs at TargetRate on stream time.
	VAD vad.Config

	// PreRoll is how much audio before speech onset is kept at the head of
	// each segment, so quiet first syllables are not clipped. Zero defaults
	// to 200ms.
	PreRoll time.Duration

	// MaxSegment force-flushes a segment that never pauses. Zero defaults
	// to 30s.
	MaxSegment time.Duration
}

// Deps are the pipeline's collaborators. Recognizer, Corrector and Injector
// are required.
type Deps struct {
	Recognizer stt.Recognizer
	Corrector  *clarity.Engine
	Injector   *inject.Manager

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Publisher may be nil when no UI is attached.
	Publisher Publisher

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Pipeline runs one dictation session. Construct with [New], drive with
// [Pipeline.Run].
type Pipeline struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics
	pub     Publisher

	rec  stt.Recognizer
	corr *clarity.Engine
	inj  *inject.Manager

	res    *resample.Resampler
	framer *audio.Framer
	det    *vad.Detector

	// Audio-path state, touched only by the processing goroutine.
	preRoll    []float32
	preRollMax int
	segment    []float32
	maxSegLen  int
	lastPause  time.Duration
	ended      bool

	// streamTime is audio time: frames processed times frame duration. The
	// detector measures pauses against it, so replay input faster than real
	// time still cuts segments at the right places.
	streamTime time.Duration
	frameDur   time.Duration
}

// New validates cfg, builds the audio path and wires the detector callbacks.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if cfg.PreRoll == 0 {
		cfg.PreRoll = DefaultPreRoll
	}
	if cfg.MaxSegment == 0 {
		cfg.MaxSegment = DefaultMaxSegment
	}

	var errs []error
	if deps.Recognizer == nil {
		errs = append(errs, errors.New("recognizer is required"))
	}
	if deps.Corrector == nil {
		errs = append(errs, errors.New("corrector is required"))
	}
	if deps.Injector == nil {
		errs = append(errs, errors.New("injector is required"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("pipeline: %w", errors.Join(errs...))
	}

	res, err := resample.New(resample.Config{
		InputRate:  cfg.InputRate,
		OutputRate: cfg.TargetRate,
		Quality:    cfg.Quality,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	p := &Pipeline{
		cfg:        cfg,
		log:        deps.Logger,
		metrics:    deps.Metrics,
		pub:        deps.Publisher,
		rec:        deps.Recognizer,
		corr:       deps.Corrector,
		inj:        deps.Injector,
		res:        res,
		preRollMax: int(int64(cfg.TargetRate) * int64(cfg.PreRoll) / int64(time.Second)),
		maxSegLen:  int(int64(cfg.TargetRate) * int64(cfg.MaxSegment) / int64(time.Second)),
	}

	vadCfg := cfg.VAD
	vadCfg.SampleRate = cfg.TargetRate
	if vadCfg.FrameDuration == 0 {
		vadCfg.FrameDuration = vad.DefaultFrameDuration
	}
	vadCfg.Clock = func() time.Time { return time.Unix(0, 0).Add(p.streamTime) }
	p.frameDur = vadCfg.FrameDuration

	det, err := vad.New(vadCfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p.det = det
	p.framer = audio.NewFramer(det.FrameSize())
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}

	det.OnSpeechStart = p.onSpeechStart
	det.OnPauseDetected = func(pause time.Duration) { p.lastPause = pause }
	det.OnSpeechEnd = p.onSpeechEnd
	return p, nil
}

// Run drives the pipeline until frames is closed or ctx is cancelled. A
// trailing unfinished segment is flushed on input close. Run closes the
// corrector during teardown, after the last segment's submission.
func (p *Pipeline) Run(ctx context.Context, frames <-chan audio.AudioFrame) error {
	g, ctx := errgroup.WithContext(ctx)
	segCh := make(chan []float32, 4)
	injCh := make(chan clarity.Result, 4)

	p.metrics.ActiveSessions.Add(ctx, 1)
	defer p.metrics.ActiveSessions.Add(context.Background(), -1)

	// Audio path.
	g.Go(func() error {
		defer close(segCh)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case f, ok := <-frames:
				if !ok {
					p.flushSegment(ctx, segCh)
					return nil
				}
				if err := p.processCapture(ctx, f, segCh); err != nil {
					return err
				}
			}
		}
	})

	// Transcription worker. Submissions to the corrector preserve segment
	// order; closing the corrector afterwards drains its queue, so injCh
	// sees every result before it closes.
	g.Go(func() error {
		defer close(injCh)
		defer p.corr.Close()
		for seg := range segCh {
			p.transcribe(ctx, seg, injCh)
		}
		return nil
	})

	// Injection worker.
	g.Go(func() error {
		for res := range injCh {
			p.deliver(ctx, res)
		}
		return nil
	})

	return g.Wait()
}

// processCapture pushes one capture frame through resampling, framing and
// detection, emitting any completed segments to segCh. A frame whose rate or
// channel count the pipeline cannot handle is a wiring bug and stops the run.
func (p *Pipeline) processCapture(ctx context.Context, f audio.AudioFrame, segCh chan<- []float32) error {
	if f.SampleRate != p.cfg.InputRate {
		return fmt.Errorf("pipeline: frame sample rate %d does not match configured input rate %d",
			f.SampleRate, p.cfg.InputRate)
	}
	samples := f.Samples
	switch f.Channels {
	case 1:
	case 2:
		samples = audio.StereoToMono(samples)
	default:
		return fmt.Errorf("pipeline: unsupported channel count %d", f.Channels)
	}
	for _, frame := range p.framer.Push(p.res.Resample(samples)) {
		p.streamTime += p.frameDur
		st := p.det.ProcessFrame(frame)
		p.metrics.RecordFrame(ctx, st.IsSpeech)

		if st.IsSpeaking {
			p.segment = append(p.segment, frame...)
			if len(p.segment) >= p.maxSegLen {
				// Speaker never paused; flush and keep collecting.
				p.log.Warn("segment reached maximum length, force flushing",
					"samples", len(p.segment))
				if err := p.emit(ctx, p.segment, segCh); err != nil {
					return err
				}
				p.segment = nil
			}
		} else {
			p.pushPreRoll(frame)
		}

		if p.ended {
			p.ended = false
			seg := p.segment
			p.segment = nil
			if err := p.emit(ctx, seg, segCh); err != nil {
				return err
			}
		}
	}
	return nil
}

// onSpeechStart seeds the new segment with the pre-roll audio.
func (p *Pipeline) onSpeechStart() {
	p.segment = append(p.segment[:0], p.preRoll...)
	p.preRoll = p.preRoll[:0]
	p.publish(bridge.Event{Type: bridge.EventSpeechStart})
}

// onSpeechEnd marks the segment complete; the frame loop emits it once
// ProcessFrame returns.
func (p *Pipeline) onSpeechEnd() {
	p.ended = true
	p.publish(bridge.Event{Type: bridge.EventSpeechEnd, PauseMs: p.lastPause.Milliseconds()})
}

// pushPreRoll keeps the most recent preRollMax samples of non-speech audio.
func (p *Pipeline) pushPreRoll(frame []float32) {
	if p.preRollMax == 0 {
		return
	}
	p.preRoll = append(p.preRoll, frame...)
	if excess := len(p.preRoll) - p.preRollMax; excess > 0 {
		p.preRoll = append(p.preRoll[:0], p.preRoll[excess:]...)
	}
}

// emit hands a completed segment to the transcription worker. The send
// blocks so dictation is never dropped; capture backpressure is preferable
// to losing an utterance.
func (p *Pipeline) emit(ctx context.Context, seg []float32, segCh chan<- []float32) error {
	if len(seg) == 0 {
		return nil
	}
	p.metrics.SegmentsDetected.Add(ctx, 1)
	select {
	case segCh <- seg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flushSegment emits a trailing unfinished segment at end of input.
func (p *Pipeline) flushSegment(ctx context.Context, segCh chan<- []float32) {
	if len(p.segment) == 0 {
		return
	}
	seg := p.segment
	p.segment = nil
	if err := p.emit(ctx, seg, segCh); err != nil {
		p.log.Warn("trailing segment dropped", "err", err)
	}
}

// transcribe runs one segment through the recogniser and submits the text
// for correction.
func (p *Pipeline) transcribe(ctx context.Context, seg []float32, injCh chan<- clarity.Result) {
	start := time.Now()
	tr, err := p.rec.Transcribe(ctx, seg, p.cfg.TargetRate)
	p.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.log.Error("transcription failed", "err", err, "samples", len(seg))
		return
	}
	if tr.Text == "" {
		return
	}
	p.publish(bridge.Event{Type: bridge.EventTranscript, Text: tr.Text, Confidence: tr.Confidence})

	cb := func(res clarity.Result) {
		p.metrics.CorrectionDuration.Record(ctx, res.Elapsed.Seconds())
		p.metrics.CorrectionsApplied.Add(ctx, int64(len(res.Corrections)))
		p.publish(bridge.Event{
			Type:       bridge.EventCorrection,
			Text:       res.Corrected,
			Original:   res.Original,
			Confidence: res.Confidence,
		})
		// Blocking is fine: the corrector's single worker preserves order
		// and the injection worker drains continuously.
		injCh <- res
	}
	if err := p.corr.Submit(tr.Text, cb); err != nil {
		// Queue full or closed: correct inline rather than lose the text.
		p.log.Warn("correction queue rejected text, correcting inline", "err", err)
		cb(p.corr.Correct(tr.Text))
	}
}

// deliver injects one corrected result.
func (p *Pipeline) deliver(ctx context.Context, res clarity.Result) {
	start := time.Now()
	rep := p.inj.Inject(ctx, res.Corrected)
	p.metrics.RecordInjection(ctx, rep.Outcome.String(), time.Since(start).Seconds())
	if rep.Outcome != inject.OutcomeDelivered {
		p.log.Warn("injection degraded", "outcome", rep.Outcome.String(), "attempts", len(rep.Attempts))
	}
	p.publish(bridge.Event{
		Type:     bridge.EventInjection,
		Text:     res.Corrected,
		Outcome:  rep.Outcome.String(),
		Strategy: rep.Strategy,
	})
}

func (p *Pipeline) publish(ev bridge.Event) {
	if p.pub != nil {
		p.pub.Publish(ev)
	}
}
