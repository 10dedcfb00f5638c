// Package mock provides a test double for the stt.Recognizer interface.
//
// Script transcripts up front and inspect which segments were delivered:
//
//	rec := &mock.Recognizer{Results: []stt.Transcript{{Text: "hello world"}}}
//	tr, _ := rec.Transcribe(ctx, samples, 16000)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxkey/voxkey/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Recognizer.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the segment that was passed in.
	Samples []float32

	// SampleRate is the rate that was passed in.
	SampleRate int
}

// Recognizer is a mock implementation of stt.Recognizer. The zero value
// returns empty transcripts for every call.
type Recognizer struct {
	mu sync.Mutex

	// Results are returned in order, one per Transcribe call. When the
	// script runs out the last entry repeats; an empty script yields empty
	// transcripts.
	Results []stt.Transcript

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Delay simulates backend latency before each result.
	Delay time.Duration

	// Calls records every invocation.
	Calls []TranscribeCall

	next int
}

// Transcribe records the call and returns the next scripted result.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32, sampleRate int) (stt.Transcript, error) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, TranscribeCall{
		Samples:    append([]float32(nil), samples...),
		SampleRate: sampleRate,
	})
	if r.Err != nil {
		return stt.Transcript{}, r.Err
	}
	if len(r.Results) == 0 {
		return stt.Transcript{}, nil
	}
	tr := r.Results[r.next]
	if r.next < len(r.Results)-1 {
		r.next++
	}
	return tr, nil
}

// CallCount returns the number of Transcribe invocations so far.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

// Reset clears recorded calls and rewinds the script.
func (r *Recognizer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = nil
	r.next = 0
}

// Ensure Recognizer implements stt.Recognizer at compile time.
var _ stt.Recognizer = (*Recognizer)(nil)
