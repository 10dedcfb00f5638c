// Package execstt runs an external recogniser command per speech segment.
// The segment is written to a temporary WAV file whose path is appended to
// the configured command line; the command prints a JSON object with "text"
// and "confidence" fields on stdout. This fits whisper.cpp wrappers and any
// other CLI recogniser without binding the build to a particular inference
// library.
package execstt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"

	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/provider/stt"
)

// Recognizer shells out to an external transcription command. Calls are
// serialised per segment ordering; the pipeline's single transcription worker
// already guarantees that.
type Recognizer struct {
	cmd []string
}

type cmdResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// New parses command with shell quoting rules. The WAV path is appended as
// the final argument at transcription time.
func New(command string) (*Recognizer, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("execstt: parse command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("execstt: command is empty")
	}
	return &Recognizer{cmd: args}, nil
}

// Transcribe writes the segment to a temporary WAV file, runs the command
// and decodes its JSON output.
func (r *Recognizer) Transcribe(ctx context.Context, samples []float32, sampleRate int) (stt.Transcript, error) {
	if len(samples) == 0 {
		return stt.Transcript{}, nil
	}

	path, err := writeSegmentWAV(samples, sampleRate)
	if err != nil {
		return stt.Transcript{}, err
	}
	defer os.Remove(path)

	args := append(append([]string(nil), r.cmd[1:]...), path)
	cmd := exec.CommandContext(ctx, r.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stt.Transcript{}, fmt.Errorf("execstt: command failed: %w: %s", err, stderr.String())
	}

	var res cmdResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return stt.Transcript{}, fmt.Errorf("execstt: decode response: %w", err)
	}
	return stt.Transcript{
		Text:          res.Text,
		Confidence:    res.Confidence,
		AudioDuration: time.Duration(len(samples)) * time.Second / time.Duration(sampleRate),
	}, nil
}

// writeSegmentWAV encodes samples as 16-bit mono PCM and returns the file
// path. The caller removes the file.
func writeSegmentWAV(samples []float32, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "voxkey_segment_*.wav")
	if err != nil {
		return "", fmt.Errorf("execstt: temp file: %w", err)
	}
	defer f.Close()

	pcm := audio.Float32ToPCM16(samples)
	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(pcm[2*i]) | int16(pcm[2*i+1])<<8)
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   data,
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("execstt: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("execstt: close wav encoder: %w", err)
	}
	return f.Name(), nil
}

// Ensure Recognizer implements stt.Recognizer at compile time.
var _ stt.Recognizer = (*Recognizer)(nil)
