package vad

import (
	"math"
	"testing"
	"time"
)

// fakeClock advances by a fixed step each time the detector asks for the time,
// simulating one frame of wall-clock progress per ProcessFrame call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestDetector(t *testing.T, cfg Config) (*Detector, *fakeClock) {
	t.Helper()
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clock := &fakeClock{t: time.Unix(1000, 0), step: cfg.FrameDuration}
	d.now = clock.now
	return d, clock
}

// frame returns a frame whose RMS energy is exactly level.
func frame(n int, level float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = level
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero sample rate", Config{SilenceThreshold: 0.01}},
		{"zero threshold", Config{SampleRate: 16000}},
		{"negative threshold", Config{SampleRate: 16000, SilenceThreshold: -0.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.cfg); err == nil {
				t.Fatalf("New(%+v): err=nil, want error", tc.cfg)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	d, err := New(Config{SampleRate: 16000, SilenceThreshold: 0.01})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 30 ms at 16 kHz.
	if d.FrameSize() != 480 {
		t.Errorf("FrameSize() = %d, want 480", d.FrameSize())
	}
}

// One second of speech followed by continuous silence: speech_start at the
// first loud frame, then exactly one pause_detected (≈1.5 s) and one
// speech_end once the pause threshold elapses.
func TestDetector_PauseDetection(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SampleRate:       16000,
		FrameDuration:    30 * time.Millisecond,
		SilenceThreshold: 0.01,
		PauseThreshold:   1500 * time.Millisecond,
	}
	d, _ := newTestDetector(t, cfg)

	var starts, ends, pauses int
	var lastPause time.Duration
	d.OnSpeechStart = func() { starts++ }
	d.OnSpeechEnd = func() { ends++ }
	d.OnPauseDetected = func(p time.Duration) { pauses++; lastPause = p }

	loud := frame(480, 0.5)
	quiet := frame(480, 0)

	// ~1 s of speech.
	for i := 0; i < 33; i++ {
		st := d.ProcessFrame(loud)
		if !st.IsSpeaking {
			t.Fatalf("frame %d: IsSpeaking=false during speech", i)
		}
	}
	if starts != 1 {
		t.Fatalf("speech_start fired %d times during speech, want 1", starts)
	}

	// Silence until the pause threshold trips (1500 ms / 30 ms = 50 frames of
	// accumulated pause; the first silent frame starts the timer).
	for i := 0; i < 60; i++ {
		d.ProcessFrame(quiet)
	}

	if ends != 1 || pauses != 1 {
		t.Fatalf("speech_end fired %d times, pause_detected %d times; want 1 and 1", ends, pauses)
	}
	if lastPause < cfg.PauseThreshold || lastPause > cfg.PauseThreshold+2*cfg.FrameDuration {
		t.Errorf("pause_detected duration = %v, want ≈%v", lastPause, cfg.PauseThreshold)
	}
	if starts != 1 {
		t.Errorf("speech_start fired %d times in total, want 1 (no double start without end)", starts)
	}
}

// A pause shorter than the threshold must not end the segment, and resuming
// speech must not re-fire speech_start.
func TestDetector_ShortPauseDoesNotEndSegment(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SampleRate:       16000,
		FrameDuration:    30 * time.Millisecond,
		SilenceThreshold: 0.01,
		PauseThreshold:   1500 * time.Millisecond,
	}
	d, _ := newTestDetector(t, cfg)

	var starts, ends int
	d.OnSpeechStart = func() { starts++ }
	d.OnSpeechEnd = func() { ends++ }

	loud := frame(480, 0.5)
	quiet := frame(480, 0)

	d.ProcessFrame(loud)
	for i := 0; i < 10; i++ { // 300 ms of silence — well under threshold
		st := d.ProcessFrame(quiet)
		if !st.IsSpeaking {
			t.Fatalf("IsSpeaking=false after %d silent frames", i+1)
		}
		if i > 0 && st.PauseDuration == 0 {
			t.Fatalf("PauseDuration=0 while a candidate pause is being timed")
		}
	}
	d.ProcessFrame(loud) // resume

	if starts != 1 || ends != 0 {
		t.Errorf("starts=%d ends=%d, want starts=1 ends=0", starts, ends)
	}
}

func TestDetector_ResumingSpeechClearsPauseTimer(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SampleRate:       16000,
		FrameDuration:    30 * time.Millisecond,
		SilenceThreshold: 0.01,
		PauseThreshold:   300 * time.Millisecond,
	}
	d, _ := newTestDetector(t, cfg)

	loud := frame(480, 0.5)
	quiet := frame(480, 0)

	d.ProcessFrame(loud)
	for i := 0; i < 5; i++ { // 150 ms of candidate pause
		d.ProcessFrame(quiet)
	}
	st := d.ProcessFrame(loud)
	if st.PauseDuration != 0 {
		t.Errorf("PauseDuration = %v after speech resumed, want 0", st.PauseDuration)
	}

	// The next silence must be timed from scratch, not from the pre-resume
	// pause.
	st = d.ProcessFrame(quiet)
	if !st.IsSpeaking {
		t.Fatal("IsSpeaking=false on the first silent frame after resume")
	}
	if st.PauseDuration != 0 {
		t.Errorf("PauseDuration = %v on the first silent frame after resume, want 0", st.PauseDuration)
	}
}

// Alternating loud and quiet frames never accumulate continuous silence
// beyond a single frame, so the segment must not end no matter how long the
// alternation runs.
func TestDetector_AlternatingFramesDoNotEndSegment(t *testing.T) {
	t.Parallel()

	cfg := Config{
		SampleRate:       16000,
		FrameDuration:    30 * time.Millisecond,
		SilenceThreshold: 0.01,
		PauseThreshold:   300 * time.Millisecond,
	}
	d, _ := newTestDetector(t, cfg)

	var ends, pauses int
	d.OnSpeechEnd = func() { ends++ }
	d.OnPauseDetected = func(time.Duration) { pauses++ }

	loud := frame(480, 0.5)
	quiet := frame(480, 0)

	d.ProcessFrame(loud)
	for i := 0; i < 40; i++ { // 2.4 s of alternation, 8x the threshold
		d.ProcessFrame(quiet)
		st := d.ProcessFrame(loud)
		if !st.IsSpeaking {
			t.Fatalf("IsSpeaking=false after alternating pair %d", i)
		}
	}
	if ends != 0 || pauses != 0 {
		t.Errorf("speech_end fired %d times, pause_detected %d times under alternation, want 0 and 0", ends, pauses)
	}
}

func TestDetector_EmptyFrameIsSilence(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, Config{SampleRate: 16000, FrameDuration: 30 * time.Millisecond, SilenceThreshold: 0.01})

	st := d.ProcessFrame(nil)
	if st.IsSpeech || st.RMSEnergy != 0 || st.IsSpeaking {
		t.Errorf("ProcessFrame(nil) = %+v, want silent status with zero energy", st)
	}
}

func TestDetector_SilenceWhileSilentIsANoOp(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, Config{SampleRate: 16000, FrameDuration: 30 * time.Millisecond, SilenceThreshold: 0.01})

	fired := false
	d.OnSpeechEnd = func() { fired = true }
	d.OnPauseDetected = func(time.Duration) { fired = true }

	for i := 0; i < 100; i++ {
		st := d.ProcessFrame(frame(480, 0))
		if st.IsSpeaking || st.PauseDuration != 0 {
			t.Fatalf("frame %d: status %+v, want idle silent status", i, st)
		}
	}
	if fired {
		t.Error("events fired while already silent")
	}
}

func TestRMS(t *testing.T) {
	t.Parallel()

	got := rms([]float32{0.5, -0.5, 0.5, -0.5})
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("rms = %f, want 0.5", got)
	}
	if rms(nil) != 0 {
		t.Errorf("rms(nil) = %f, want 0", rms(nil))
	}
}

func TestDetector_Reset(t *testing.T) {
	t.Parallel()

	d, _ := newTestDetector(t, Config{SampleRate: 16000, FrameDuration: 30 * time.Millisecond, SilenceThreshold: 0.01})
	d.ProcessFrame(frame(480, 0.5))
	d.Reset()

	starts := 0
	d.OnSpeechStart = func() { starts++ }
	st := d.ProcessFrame(frame(480, 0.5))
	if !st.IsSpeaking || starts != 1 {
		t.Errorf("after Reset: IsSpeaking=%v starts=%d, want true and 1", st.IsSpeaking, starts)
	}
}
