package audio

// Framer re-chunks a stream of variable-length sample slices into fixed-size
// frames. Capture callbacks deliver whatever chunk size the device favours;
// VAD classification needs frames of an exact sample count, so the framer
// buffers the remainder between calls.
//
// Create one per stream; not designed for shared use across goroutines.
type Framer struct {
	size    int
	pending []float32
}

// NewFramer returns a Framer that emits frames of exactly size samples.
// Panics if size is not positive — frame size is derived from validated
// configuration, so a bad value is a programming error.
func NewFramer(size int) *Framer {
	if size <= 0 {
		panic("audio: framer size must be positive")
	}
	return &Framer{size: size}
}

// Push appends samples to the internal buffer and returns all complete frames
// now available, in order. The returned slices are freshly allocated and safe
// to retain. An input smaller than the frame size may return no frames.
func (f *Framer) Push(samples []float32) [][]float32 {
	f.pending = append(f.pending, samples...)

	var frames [][]float32
	for len(f.pending) >= f.size {
		frame := make([]float32, f.size)
		copy(frame, f.pending[:f.size])
		frames = append(frames, frame)
		f.pending = f.pending[f.size:]
	}

	// Re-anchor the pending slice so consumed frames can be collected.
	if len(frames) > 0 {
		rest := make([]float32, len(f.pending), f.size)
		copy(rest, f.pending)
		f.pending = rest
	}
	return frames
}

// Pending returns the number of buffered samples not yet emitted as a frame.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Reset discards any buffered samples.
func (f *Framer) Reset() {
	f.pending = f.pending[:0]
}
