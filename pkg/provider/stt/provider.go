// Package stt defines the Recognizer interface for speech-to-text backends.
//
// Dictation transcribes one bounded speech segment at a time, so the
// interface is batch-shaped: the pipeline hands over a complete segment of
// mono samples and blocks until the backend returns a transcript. Streaming
// partials are out of scope; the voice activity detector already bounds
// latency by cutting segments at pauses.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"time"
)

// Transcript is the result of transcribing one speech segment.
type Transcript struct {
	// Text is the transcribed speech content, empty when the segment
	// contained no recognisable speech.
	Text string

	// Confidence is the overall confidence score (0.0 to 1.0). Zero when the
	// backend does not report confidence.
	Confidence float64

	// AudioDuration is the length of the transcribed segment.
	AudioDuration time.Duration
}

// Recognizer is the abstraction over any speech-to-text backend.
type Recognizer interface {
	// Transcribe converts one speech segment of mono float32 samples at
	// sampleRate Hz into text. It blocks until the backend answers or ctx is
	// done. An empty segment yields an empty Transcript, not an error.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (Transcript, error)
}
