// Package config provides the configuration schema and loader for the voxkey
// dictation service.
package config

import (
	"time"

	"github.com/voxkey/voxkey/pkg/audio/resample"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Audio      AudioConfig      `yaml:"audio"`
	VAD        VADConfig        `yaml:"vad"`
	Correction CorrectionConfig `yaml:"correction"`
	Injection  InjectionConfig  `yaml:"injection"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
}

// ServerConfig holds network and logging settings. The HTTP listener serves
// the metrics endpoint and the transcript websocket.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on
	// (e.g., "127.0.0.1:8090"). Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig describes the capture format and the resampler.
type AudioConfig struct {
	// InputRate is the capture sample rate in Hz (e.g., 44100).
	InputRate int `yaml:"input_rate"`

	// TargetRate is the rate the recogniser expects, in Hz. Default: 16000.
	TargetRate int `yaml:"target_rate"`

	// Channels is the capture channel count (1 or 2). Default: 1.
	Channels int `yaml:"channels"`

	// Quality selects the resampler filter length: fast, balanced or high.
	// Default: balanced.
	Quality resample.Quality `yaml:"quality"`
}

// VADConfig tunes the voice activity detector.
type VADConfig struct {
	// SilenceThreshold is the RMS energy at or below which a frame counts as
	// silence. Default: 0.01.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// FrameDurationMs is the analysis frame length in milliseconds.
	// Default: 30.
	FrameDurationMs int `yaml:"frame_duration_ms"`

	// PauseThresholdMs is how long silence must last before a speech segment
	// ends, in milliseconds. Default: 1500.
	PauseThresholdMs int `yaml:"pause_threshold_ms"`
}

// FrameDuration returns the analysis frame length.
func (c VADConfig) FrameDuration() time.Duration {
	return time.Duration(c.FrameDurationMs) * time.Millisecond
}

// PauseThreshold returns the end-of-segment silence duration.
func (c VADConfig) PauseThreshold() time.Duration {
	return time.Duration(c.PauseThresholdMs) * time.Millisecond
}

// CorrectionConfig tunes the transcript correction engine.
type CorrectionConfig struct {
	// RuleBased enables the jargon and homophone passes. Default: true
	// (see [Default]).
	RuleBased bool `yaml:"rule_based"`

	// QueueSize bounds the asynchronous correction queue. Default: 64.
	QueueSize int `yaml:"queue_size"`

	// Vocabulary lists domain terms for the phonetic matching pass. Empty
	// disables the pass.
	Vocabulary []string `yaml:"vocabulary"`

	// PhoneticThreshold and FuzzyThreshold tune vocabulary matching; zero
	// values use the engine defaults (0.70 and 0.85).
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`
}

// InjectionConfig tunes text delivery.
type InjectionConfig struct {
	// RestoreDelayMs is how long after an injection the previous clipboard
	// contents come back, in milliseconds. Default: 1000.
	RestoreDelayMs int `yaml:"restore_delay_ms"`

	// StrategyTimeoutMs bounds each delivery attempt, in milliseconds.
	// Default: 1000.
	StrategyTimeoutMs int `yaml:"strategy_timeout_ms"`

	// BreakerFailures is the consecutive-failure count that sidelines a
	// strategy. Default: 3.
	BreakerFailures int `yaml:"breaker_failures"`

	// BreakerCooldownMs is how long a sidelined strategy rests before a
	// probe, in milliseconds. Default: 10000.
	BreakerCooldownMs int `yaml:"breaker_cooldown_ms"`
}

// RestoreDelay returns the clipboard restore delay.
func (c InjectionConfig) RestoreDelay() time.Duration {
	return time.Duration(c.RestoreDelayMs) * time.Millisecond
}

// StrategyTimeout returns the per-attempt timeout.
func (c InjectionConfig) StrategyTimeout() time.Duration {
	return time.Duration(c.StrategyTimeoutMs) * time.Millisecond
}

// BreakerCooldown returns the strategy cooldown.
func (c InjectionConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownMs) * time.Millisecond
}

// RecognizerConfig selects the speech-to-text backend.
type RecognizerConfig struct {
	// Name selects the backend: "mock" or "exec". Default: mock.
	Name string `yaml:"name"`

	// Command is the external recogniser command line for the exec backend,
	// e.g. "whisper-cli --model base.en". The WAV path is appended.
	Command string `yaml:"command"`

	// TimeoutMs bounds one transcription call, in milliseconds.
	// Default: 30000.
	TimeoutMs int `yaml:"timeout_ms"`
}

// Timeout returns the transcription timeout.
func (c RecognizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Default returns a Config with all defaults applied, suitable for running
// without a config file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8090",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			InputRate:  44100,
			TargetRate: 16000,
			Channels:   1,
			Quality:    resample.QualityBalanced,
		},
		VAD: VADConfig{
			SilenceThreshold: 0.01,
			FrameDurationMs:  30,
			PauseThresholdMs: 1500,
		},
		Correction: CorrectionConfig{
			RuleBased: true,
			QueueSize: 64,
		},
		Injection: InjectionConfig{
			RestoreDelayMs:    1000,
			StrategyTimeoutMs: 1000,
			BreakerFailures:   3,
			BreakerCooldownMs: 10000,
		},
		Recognizer: RecognizerConfig{
			Name:      "mock",
			TimeoutMs: 30000,
		},
	}
}
