package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/voxkey/voxkey/pkg/audio"
)

// replayChunk is the number of frames decoded per channel send during WAV
// replay.
const replayChunk = 4096

// replayWAV streams a WAV file as capture frames. The channel closes at end
// of file. Replay is not paced: the voice activity detector measures pauses
// in stream time, so feeding faster than real time still cuts segments
// correctly.
func replayWAV(ctx context.Context, path string) (<-chan audio.AudioFrame, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		f.Close()
		return nil, 0, fmt.Errorf("%q is not a valid WAV file", path)
	}
	rate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	scale := float32(int64(1) << (dec.BitDepth - 1))

	out := make(chan audio.AudioFrame, 4)
	go func() {
		defer close(out)
		defer f.Close()

		buf := &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: channels, SampleRate: rate},
			Data:   make([]int, replayChunk*channels),
		}
		var ts time.Duration
		for {
			n, err := dec.PCMBuffer(buf)
			if n > 0 {
				samples := make([]float32, n)
				for i := 0; i < n; i++ {
					samples[i] = float32(buf.Data[i]) / scale
				}
				fr := audio.AudioFrame{
					Samples:    samples,
					SampleRate: rate,
					Channels:   channels,
					Timestamp:  ts,
				}
				ts += fr.Duration()
				select {
				case out <- fr:
				case <-ctx.Done():
					return
				}
			}
			if err != nil || n == 0 {
				if err != nil && !errors.Is(err, io.EOF) {
					slog.Warn("wav decode stopped", "err", err)
				}
				return
			}
		}
	}()
	return out, rate, nil
}

// readPCMStream streams raw little-endian 16-bit PCM from r, typically stdin
// fed by a capture tool, as frames at the configured rate and channel count.
// The channel closes on EOF.
func readPCMStream(ctx context.Context, r io.Reader, rate, channels int, log *slog.Logger) <-chan audio.AudioFrame {
	out := make(chan audio.AudioFrame, 4)
	go func() {
		defer close(out)
		buf := make([]byte, 8192)
		var pending []byte
		var ts time.Duration
		for {
			n, err := r.Read(buf)
			if n > 0 {
				// Reads may split a 16-bit sample; carry the odd byte over.
				pending = append(pending, buf[:n]...)
				usable := len(pending) &^ 1
				if usable > 0 {
					fr := audio.AudioFrame{
						Samples:    audio.PCM16ToFloat32(pending[:usable]),
						SampleRate: rate,
						Channels:   channels,
						Timestamp:  ts,
					}
					ts += fr.Duration()
					select {
					case out <- fr:
					case <-ctx.Done():
						return
					}
					pending = pending[:copy(pending, pending[usable:])]
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Warn("audio input stopped", "err", err)
				}
				return
			}
		}
	}()
	return out
}
