// Package resample converts a stream of audio chunks from an arbitrary input
// sample rate to a fixed output rate without dropped samples or audible
// discontinuities at chunk boundaries.
//
// The conversion uses a rational polyphase scheme: the rate ratio is reduced
// to minimal integer up/down factors and each output sample is computed by a
// windowed-sinc low-pass kernel evaluated at the exact fractional input
// position. A carry-over tail of input samples is preserved across calls so
// the filter never sees an artificial edge at a chunk boundary.
//
// The filter introduces a constant group delay of half the kernel length (in
// input samples); callers that align audio with external timestamps should
// account for it. Output sample counts are deterministic: after feeding N
// input samples in any chunking, exactly floor(N*out/in) samples have been
// produced.
package resample

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Quality selects the anti-aliasing filter length, trading CPU for stop-band
// attenuation.
type Quality string

const (
	// QualityFast uses a 64-tap kernel — lowest CPU, audible aliasing on
	// bright material.
	QualityFast Quality = "fast"

	// QualityBalanced uses a 128-tap kernel — good trade-off, the default.
	QualityBalanced Quality = "balanced"

	// QualityHigh uses a 256-tap kernel — best quality, slightly more CPU.
	QualityHigh Quality = "high"
)

// IsValid reports whether q is a recognised quality tier.
func (q Quality) IsValid() bool {
	switch q {
	case QualityFast, QualityBalanced, QualityHigh:
		return true
	}
	return false
}

// taps returns the filter length for the tier.
func (q Quality) taps() int {
	switch q {
	case QualityFast:
		return 64
	case QualityHigh:
		return 256
	default:
		return 128
	}
}

// Config holds the construction parameters for a [Resampler].
type Config struct {
	// InputRate is the capture sample rate in Hz. Must be positive.
	InputRate int

	// OutputRate is the target sample rate in Hz. Must be positive.
	OutputRate int

	// Quality selects the filter length. Empty defaults to [QualityBalanced].
	Quality Quality
}

// Resampler converts mono float32 audio from InputRate to OutputRate.
// It carries state across calls (the input tail and the stream position);
// create one per stream and do not share across goroutines.
type Resampler struct {
	cfg  Config
	up   int // interpolation factor
	down int // decimation factor
	taps int

	// phases[p] is the kernel for fractional offset p/up, normalised to unit
	// DC gain. nil in pass-through mode.
	phases [][]float32

	// carry is the input tail retained for continuity. Its length never
	// exceeds carryMax.
	carry    []float32
	carryMax int

	// Absolute stream counters. in/up/down determine exactly which output
	// indices are due after each chunk.
	inTotal  int64
	outTotal int64

	warnedFallback bool
}

// New validates cfg and returns a ready Resampler.
func New(cfg Config) (*Resampler, error) {
	var errs []error
	if cfg.InputRate <= 0 {
		errs = append(errs, fmt.Errorf("input rate %d must be positive", cfg.InputRate))
	}
	if cfg.OutputRate <= 0 {
		errs = append(errs, fmt.Errorf("output rate %d must be positive", cfg.OutputRate))
	}
	if cfg.Quality == "" {
		cfg.Quality = QualityBalanced
	}
	if !cfg.Quality.IsValid() {
		errs = append(errs, fmt.Errorf("quality %q is invalid; valid values: fast, balanced, high", cfg.Quality))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("resample: %w", errors.Join(errs...))
	}

	r := &Resampler{cfg: cfg, taps: cfg.Quality.taps()}

	switch {
	case cfg.InputRate == cfg.OutputRate:
		// Pass-through: zero filtering cost.
		r.up, r.down = 1, 1
	case cfg.InputRate == 44100 && cfg.OutputRate == 16000:
		// The common capture→model conversion reduces to exactly 160/441.
		r.up, r.down = 160, 441
	default:
		g := gcd(cfg.InputRate, cfg.OutputRate)
		r.up = cfg.OutputRate / g
		r.down = cfg.InputRate / g
	}

	if r.up != r.down {
		r.phases = designPolyphase(r.taps, r.up, cfg.InputRate, cfg.OutputRate)
		// Deepest lookback of the first output due after a chunk boundary:
		// one kernel length plus the input stride of a single output step.
		r.carryMax = r.taps - 1 + (r.down+r.up-1)/r.up
	}

	slog.Debug("resampler configured",
		"input_rate", cfg.InputRate,
		"output_rate", cfg.OutputRate,
		"ratio", fmt.Sprintf("%d/%d", r.up, r.down),
		"taps", r.taps,
		"quality", cfg.Quality,
	)
	return r, nil
}

// designPolyphase builds one kernel per fractional phase p/up. Each kernel is
// a Hamming-windowed sinc with cutoff min(in, out)/2, normalised so a constant
// input maps to the same constant output.
func designPolyphase(taps, up, inRate, outRate int) [][]float32 {
	cutoff := math.Min(float64(inRate), float64(outRate)) / 2
	// Normalised cutoff relative to the input Nyquist frequency.
	fc := cutoff / (float64(inRate) / 2)
	half := float64(taps-1) / 2

	phases := make([][]float32, up)
	for p := 0; p < up; p++ {
		frac := float64(p) / float64(up)
		h := make([]float32, taps)
		var sum float64
		for k := 0; k < taps; k++ {
			x := float64(k) - half + frac
			v := fc * sinc(fc*x) * hamming(float64(k), taps)
			h[k] = float32(v)
			sum += v
		}
		if sum != 0 {
			inv := float32(1 / sum)
			for k := range h {
				h[k] *= inv
			}
		}
		phases[p] = h
	}
	return phases
}

// gcd returns the greatest common divisor of two positive integers.
func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// sinc is the normalised sinc function sin(πx)/(πx).
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// hamming evaluates the Hamming window at tap k of an n-tap filter.
func hamming(k float64, n int) float64 {
	return 0.54 - 0.46*math.Cos(2*math.Pi*k/float64(n-1))
}

// Resample converts one chunk. The carry-over tail from previous calls is
// prepended before filtering, so concatenating the outputs of successive calls
// equals resampling the concatenated inputs. An empty chunk returns an empty
// chunk. On internal numeric failure the chunk is converted by naive strided
// decimation instead of being dropped.
func (r *Resampler) Resample(chunk []float32) []float32 {
	if len(chunk) == 0 {
		return nil
	}

	// Equal rates: pass through, still copying so callers own the result.
	if r.phases == nil {
		out := make([]float32, len(chunk))
		copy(out, chunk)
		r.inTotal += int64(len(chunk))
		r.outTotal += int64(len(chunk))
		return out
	}

	// x is the carry tail followed by the new chunk; base is the absolute
	// stream index of x[0].
	x := make([]float32, 0, len(r.carry)+len(chunk))
	x = append(x, r.carry...)
	x = append(x, chunk...)
	base := r.inTotal - int64(len(r.carry))
	r.inTotal += int64(len(chunk))

	due := r.inTotal*int64(r.up)/int64(r.down) - r.outTotal
	out := make([]float32, 0, due)
	ok := true

	for n := int64(0); n < due; n++ {
		j := r.outTotal + n
		num := j * int64(r.down)
		i0 := num / int64(r.up)
		h := r.phases[int(num%int64(r.up))]

		var acc float64
		for k := 0; k < r.taps; k++ {
			idx := i0 - int64(k) - base
			if idx < 0 {
				// Start-of-stream zero padding; indices only decrease.
				break
			}
			if idx >= int64(len(x)) {
				continue
			}
			acc += float64(h[k]) * float64(x[idx])
		}
		if math.IsNaN(acc) || math.IsInf(acc, 0) {
			ok = false
			break
		}
		out = append(out, float32(acc))
	}
	r.outTotal += due

	// Retain the tail for the next call.
	keep := len(x)
	if keep > r.carryMax {
		keep = r.carryMax
	}
	r.carry = append(r.carry[:0], x[len(x)-keep:]...)

	if !ok {
		if !r.warnedFallback {
			r.warnedFallback = true
			slog.Warn("resampler numeric failure, falling back to strided decimation",
				"input_rate", r.cfg.InputRate,
				"output_rate", r.cfg.OutputRate,
			)
		}
		return decimate(chunk, r.cfg.InputRate, r.cfg.OutputRate)
	}
	return out
}

// decimate picks every (in/out)-th sample with no filtering. Quality is poor
// but the chunk is never dropped.
func decimate(chunk []float32, inRate, outRate int) []float32 {
	n := int(int64(len(chunk)) * int64(outRate) / int64(inRate))
	out := make([]float32, 0, n)
	step := float64(inRate) / float64(outRate)
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx >= len(chunk) {
			idx = len(chunk) - 1
		}
		out = append(out, chunk[idx])
	}
	return out
}

// OutputSize returns the number of output samples produced for inputSize
// input samples: floor(inputSize * out/in). Callers use it to pre-size
// downstream buffers. The actual per-chunk output length is within one sample
// of this estimate; cumulative lengths match it exactly.
func (r *Resampler) OutputSize(inputSize int) int {
	return int(int64(inputSize) * int64(r.up) / int64(r.down))
}

// Ratio returns the reduced integer up/down conversion factors.
func (r *Resampler) Ratio() (up, down int) {
	return r.up, r.down
}

// Reset clears the carry-over buffer and stream position. The filter and
// ratio configuration persist; use Reset when the input stream restarts.
func (r *Resampler) Reset() {
	r.carry = r.carry[:0]
	r.inTotal = 0
	r.outTotal = 0
}
