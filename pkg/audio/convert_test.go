package audio_test

import (
	"math"
	"testing"

	"github.com/voxkey/voxkey/pkg/audio"
)

func TestPCM16RoundTrip(t *testing.T) {
	t.Parallel()

	in := []float32{0, 0.5, -0.5, 0.999, -1}
	pcm := audio.Float32ToPCM16(in)
	out := audio.PCM16ToFloat32(pcm)
	if len(out) != len(in) {
		t.Fatalf("round trip length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(float64(out[i]-in[i])) > 1.0/32768 {
			t.Errorf("sample %d: got %f, want %f within one quantisation step", i, out[i], in[i])
		}
	}
}

func TestFloat32ToPCM16_Clamps(t *testing.T) {
	t.Parallel()

	pcm := audio.Float32ToPCM16([]float32{2.0, -2.0})
	out := audio.PCM16ToFloat32(pcm)
	if out[0] < 0.99 || out[0] > 1.0 {
		t.Errorf("over-range sample decoded to %f, want ≈1.0", out[0])
	}
	if out[1] > -0.99 {
		t.Errorf("under-range sample decoded to %f, want ≈-1.0", out[1])
	}
}

func TestPCM16ToFloat32_IgnoresTrailingOddByte(t *testing.T) {
	t.Parallel()

	out := audio.PCM16ToFloat32([]byte{0x00, 0x40, 0xff})
	if len(out) != 1 {
		t.Fatalf("decoded %d samples, want 1", len(out))
	}
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	out := audio.StereoToMono([]float32{0.2, 0.4, -1, 1})
	want := []float32{0.3, 0}
	if len(out) != len(want) {
		t.Fatalf("length = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d = %f, want %f", i, out[i], want[i])
		}
	}
}

func TestFrameDuration(t *testing.T) {
	t.Parallel()

	f := audio.AudioFrame{Samples: make([]float32, 480), SampleRate: 16000, Channels: 1}
	if got := f.Duration().Milliseconds(); got != 30 {
		t.Errorf("Duration() = %dms, want 30ms", got)
	}
}
