package audio

import "time"

// AudioFrame represents a single chunk of audio flowing through the pipeline.
// Frames are the atomic unit of audio transport — captured from the input
// stream, resampled, classified by VAD, and assembled into speech segments.
type AudioFrame struct {
	// Samples holds mono float32 samples in the range [-1, 1].
	Samples []float32

	// SampleRate in Hz (e.g., 44100 for a typical capture device, 16000 for
	// the recognition model).
	SampleRate int

	// Channels: 1 for mono. Stereo frames are down-mixed on entry to the
	// pipeline (see StereoToMono).
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame at its sample rate.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samplesPerChannel := len(f.Samples) / f.Channels
	return time.Duration(samplesPerChannel) * time.Second / time.Duration(f.SampleRate)
}
