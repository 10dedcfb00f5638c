package resample_test

import (
	"math"
	"testing"

	"github.com/voxkey/voxkey/pkg/audio/resample"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  resample.Config
	}{
		{"zero input rate", resample.Config{InputRate: 0, OutputRate: 16000}},
		{"negative output rate", resample.Config{InputRate: 44100, OutputRate: -1}},
		{"unknown quality", resample.Config{InputRate: 44100, OutputRate: 16000, Quality: "ultra"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := resample.New(tc.cfg); err == nil {
				t.Fatalf("New(%+v): err=nil, want error", tc.cfg)
			}
		})
	}
}

func TestNew_ExactRatio44100To16000(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 44100, OutputRate: 16000, Quality: resample.QualityHigh})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	up, down := r.Ratio()
	if up != 160 || down != 441 {
		t.Errorf("Ratio() = %d/%d, want 160/441", up, down)
	}
}

func TestResample_EmptyInput(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 44100, OutputRate: 16000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if out := r.Resample(nil); len(out) != 0 {
		t.Errorf("Resample(nil) returned %d samples, want 0", len(out))
	}
}

func TestResample_EqualRatesPassThrough(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 16000, OutputRate: 16000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := []float32{0.1, -0.2, 0.3, -0.4}
	out := r.Resample(in)
	if len(out) != len(in) {
		t.Fatalf("pass-through length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], in[i])
		}
	}
}

// One second of silence at 44.1 kHz must come out as exactly 16000 zero
// samples at the model rate — silence stays silence.
func TestResample_SilenceScenario(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 44100, OutputRate: 16000, Quality: resample.QualityHigh})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var total int
	for fed := 0; fed < 44100; {
		n := 4410
		if fed+n > 44100 {
			n = 44100 - fed
		}
		out := r.Resample(make([]float32, n))
		for i, s := range out {
			if s != 0 {
				t.Fatalf("output sample %d of chunk = %f, want 0", i, s)
			}
		}
		total += len(out)
		fed += n
	}
	if total != 16000 {
		t.Errorf("total output = %d samples, want 16000", total)
	}
}

// Cumulative output length must track floor(N*out/in) exactly, regardless of
// how the input is chunked; each individual chunk is within one sample of
// OutputSize(len(chunk)).
func TestResample_DeterministicSizes(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 48000, OutputRate: 16000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	chunkSizes := []int{1, 7, 480, 479, 1024, 3, 4800, 333}
	var in, out int
	for _, n := range chunkSizes {
		produced := len(r.Resample(make([]float32, n)))
		est := r.OutputSize(n)
		if d := produced - est; d < -1 || d > 1 {
			t.Errorf("chunk of %d: produced %d samples, estimate %d (diff %d)", n, produced, est, d)
		}
		in += n
		out += produced
	}
	if want := in * 16000 / 48000; out != want {
		t.Errorf("cumulative output = %d, want %d", out, want)
	}
}

// A pure tone split into ragged chunks must come out as the same tone with no
// discontinuity at any chunk boundary. The filter delay is constant, so the
// check is on smoothness, amplitude and frequency rather than exact phase.
func TestResample_SineContinuityAcrossChunks(t *testing.T) {
	t.Parallel()

	const (
		inRate  = 44100
		outRate = 16000
		freq    = 440.0
		amp     = 0.5
	)
	r, err := resample.New(resample.Config{InputRate: inRate, OutputRate: outRate, Quality: resample.QualityHigh})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	input := make([]float32, inRate) // one second
	for i := range input {
		input[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/inRate))
	}

	var output []float32
	chunkSizes := []int{1000, 37, 4410, 441, 2205, 999}
	for i, c := 0, 0; i < len(input); c++ {
		n := chunkSizes[c%len(chunkSizes)]
		if i+n > len(input) {
			n = len(input) - i
		}
		output = append(output, r.Resample(input[i:i+n])...)
		i += n
	}

	if len(output) != outRate {
		t.Fatalf("output length = %d, want %d", len(output), outRate)
	}

	// Skip the filter warm-up region at the stream head.
	settled := output[600:]

	// Smoothness: the largest sample-to-sample step of a 440 Hz, 0.5
	// amplitude tone at 16 kHz is amp*2π*f/rate ≈ 0.086. A chunk-boundary
	// click would approach 2*amp = 1.0.
	maxStep := amp * 2 * math.Pi * freq / outRate * 1.5
	for i := 1; i < len(settled); i++ {
		if step := math.Abs(float64(settled[i] - settled[i-1])); step > maxStep {
			t.Fatalf("discontinuity at output sample %d: step %f exceeds %f", i, step, maxStep)
		}
	}

	// Amplitude: RMS of a sine is amp/√2.
	var sumSq float64
	for _, s := range settled {
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(len(settled)))
	if want := amp / math.Sqrt2; math.Abs(rms-want) > want*0.05 {
		t.Errorf("RMS = %f, want %f ±5%%", rms, want)
	}

	// Frequency: count zero crossings; a 440 Hz tone crosses 2*440 times/s.
	crossings := 0
	for i := 1; i < len(settled); i++ {
		if (settled[i-1] < 0) != (settled[i] < 0) {
			crossings++
		}
	}
	gotFreq := float64(crossings) / 2 * outRate / float64(len(settled))
	if math.Abs(gotFreq-freq) > freq*0.02 {
		t.Errorf("reconstructed frequency = %f Hz, want %f ±2%%", gotFreq, freq)
	}
}

func TestResample_ResetClearsCarryOnly(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 44100, OutputRate: 16000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Resample(make([]float32, 1000))
	r.Reset()

	// After Reset the stream restarts: feeding N samples again yields
	// floor(N*160/441) from a fresh stream position.
	out := r.Resample(make([]float32, 441))
	if len(out) != 160 {
		t.Errorf("post-reset output = %d samples, want 160", len(out))
	}
	if up, down := r.Ratio(); up != 160 || down != 441 {
		t.Errorf("Ratio() after Reset = %d/%d, want 160/441", up, down)
	}
}

func TestOutputSize(t *testing.T) {
	t.Parallel()

	r, err := resample.New(resample.Config{InputRate: 44100, OutputRate: 16000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cases := []struct{ in, want int }{
		{0, 0},
		{441, 160},
		{44100, 16000},
		{1000, 362}, // floor(1000*160/441)
	}
	for _, tc := range cases {
		if got := r.OutputSize(tc.in); got != tc.want {
			t.Errorf("OutputSize(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
