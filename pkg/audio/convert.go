// Package audio defines the audio frame type and sample-format helpers shared
// by the capture boundary, the resampler, and the recognizer handoff.
//
// The pipeline works on mono float32 samples in [-1, 1]. Capture front-ends
// and recognizers that speak 16-bit little-endian PCM convert at the edges
// with [PCM16ToFloat32] and [Float32ToPCM16].
package audio

// PCM16ToFloat32 decodes little-endian 16-bit signed PCM into float32 samples
// in [-1, 1]. A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// Float32ToPCM16 encodes float32 samples into little-endian 16-bit signed PCM.
// Samples outside [-1, 1] are clamped.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// StereoToMono down-mixes interleaved stereo samples by averaging L and R.
// A trailing unpaired sample is dropped.
func StereoToMono(samples []float32) []float32 {
	n := len(samples) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return out
}
