// Package vad implements energy-based voice activity detection with pause
// detection and segment-boundary callbacks.
//
// The detector is a two-state machine (Silent, Speaking) driven by the RMS
// energy of fixed-duration frames. RMS rather than peak energy keeps it
// robust to transient clicks. Transitions fire the OnSpeechStart,
// OnPauseDetected and OnSpeechEnd callbacks; every call also returns a
// [Status] record so callers can drive level meters independently of event
// firing.
//
// VAD is synchronous by design: ProcessFrame returns immediately, performs no
// I/O, and cannot fail at runtime. A Detector is not safe for concurrent use;
// call it from the single goroutine that owns the audio stream.
package vad

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Defaults applied by [New] when the corresponding Config field is zero.
const (
	DefaultFrameDuration  = 30 * time.Millisecond
	DefaultPauseThreshold = 1500 * time.Millisecond
)

// Config holds the parameters for a Detector. All values are validated at
// construction; invalid configuration indicates a caller bug and is rejected
// with a descriptive error.
type Config struct {
	// SampleRate is the rate of the frames passed to ProcessFrame, in Hz.
	SampleRate int

	// FrameDuration is the fixed duration of each frame. Zero defaults to
	// 30 ms.
	FrameDuration time.Duration

	// SilenceThreshold is the RMS energy at or below which a frame counts as
	// silence. Must be positive; typical: 0.01 for normalised float samples.
	SilenceThreshold float64

	// PauseThreshold is how long continuous silence must last while speaking
	// before the detector declares the end of speech. Zero defaults to 1.5 s.
	PauseThreshold time.Duration

	// Clock supplies the time base for pause measurement. Nil defaults to
	// time.Now, which is right for live capture. Replay drivers supply
	// stream time instead, so pauses are measured in audio time even when
	// frames arrive faster than real time.
	Clock func() time.Time
}

// Status is returned by every ProcessFrame call, whether or not a state
// transition fired.
type Status struct {
	// IsSpeech reports whether this frame's energy exceeded the threshold.
	IsSpeech bool

	// RMSEnergy is the root-mean-square energy of the frame.
	RMSEnergy float64

	// PauseDuration is the length of the current candidate pause, zero when
	// no pause is being timed.
	PauseDuration time.Duration

	// IsSpeaking reports the detector state after processing this frame.
	IsSpeaking bool
}

// Detector classifies frames and tracks speech segments for one dictation
// session. Reset it when the pipeline restarts.
type Detector struct {
	cfg       Config
	frameSize int

	// Callbacks are invoked synchronously from ProcessFrame. Set them before
	// feeding frames; they may be nil.
	OnSpeechStart   func()
	OnSpeechEnd     func()
	OnPauseDetected func(pause time.Duration)

	speaking     bool
	silenceStart time.Time // zero while no candidate pause is being timed
	lastSpeech   time.Time

	// now is the clock used for pause timing; overridable in tests.
	now func() time.Time
}

// New validates cfg and returns a Detector in the Silent state.
func New(cfg Config) (*Detector, error) {
	if cfg.FrameDuration == 0 {
		cfg.FrameDuration = DefaultFrameDuration
	}
	if cfg.PauseThreshold == 0 {
		cfg.PauseThreshold = DefaultPauseThreshold
	}

	var errs []error
	if cfg.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate %d must be positive", cfg.SampleRate))
	}
	if cfg.FrameDuration < 0 {
		errs = append(errs, fmt.Errorf("frame duration %v must be positive", cfg.FrameDuration))
	}
	if cfg.SilenceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("silence threshold %g must be positive", cfg.SilenceThreshold))
	}
	if cfg.PauseThreshold < 0 {
		errs = append(errs, fmt.Errorf("pause threshold %v must be positive", cfg.PauseThreshold))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("vad: %w", errors.Join(errs...))
	}

	d := &Detector{
		cfg:       cfg,
		frameSize: int(int64(cfg.SampleRate) * int64(cfg.FrameDuration) / int64(time.Second)),
		now:       time.Now,
	}
	if cfg.Clock != nil {
		d.now = cfg.Clock
	}
	d.lastSpeech = d.now()
	return d, nil
}

// FrameSize returns the expected number of samples per frame.
func (d *Detector) FrameSize() int {
	return d.frameSize
}

// ProcessFrame classifies one frame and advances the state machine. An empty
// frame is treated as silence with energy 0, not as an error.
func (d *Detector) ProcessFrame(samples []float32) Status {
	energy := rms(samples)
	isSpeech := energy > d.cfg.SilenceThreshold
	now := d.now()
	var pause time.Duration

	if isSpeech {
		// Any speech frame cancels the candidate pause, so only continuous
		// silence can accumulate towards the threshold.
		d.silenceStart = time.Time{}
		if !d.speaking {
			d.speaking = true
			if d.OnSpeechStart != nil {
				d.OnSpeechStart()
			}
		}
		d.lastSpeech = now
	} else if d.speaking {
		if d.silenceStart.IsZero() {
			d.silenceStart = now
		}
		pause = now.Sub(d.silenceStart)
		if pause >= d.cfg.PauseThreshold {
			// Pause threshold reached: end of the speech segment. The
			// candidate-pause timer is cleared so that silenceStart is only
			// ever set while speaking.
			d.speaking = false
			d.silenceStart = time.Time{}
			if d.OnPauseDetected != nil {
				d.OnPauseDetected(pause)
			}
			if d.OnSpeechEnd != nil {
				d.OnSpeechEnd()
			}
		}
	}

	return Status{
		IsSpeech:      isSpeech,
		RMSEnergy:     energy,
		PauseDuration: pause,
		IsSpeaking:    d.speaking,
	}
}

// Reset returns the detector to the Silent state, clearing any candidate
// pause. Configuration persists.
func (d *Detector) Reset() {
	d.speaking = false
	d.silenceStart = time.Time{}
	d.lastSpeech = d.now()
}

// rms computes root-mean-square energy. Empty input yields 0.
func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
