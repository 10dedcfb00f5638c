package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// validRecognizers lists the known recogniser backends.
var validRecognizers = []string{"mock", "exec"}

// Load reads the YAML configuration file at path, applies defaults for
// omitted fields and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Unknown keys are rejected so typos fail loudly.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.InputRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.input_rate %d must be positive", cfg.Audio.InputRate))
	}
	if cfg.Audio.TargetRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.target_rate %d must be positive", cfg.Audio.TargetRate))
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be 1 or 2", cfg.Audio.Channels))
	}
	if cfg.Audio.Quality != "" && !cfg.Audio.Quality.IsValid() {
		errs = append(errs, fmt.Errorf("audio.quality %q is invalid; valid values: fast, balanced, high", cfg.Audio.Quality))
	}

	if cfg.VAD.SilenceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("vad.silence_threshold %g must be positive", cfg.VAD.SilenceThreshold))
	}
	if cfg.VAD.FrameDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.frame_duration_ms %d must be positive", cfg.VAD.FrameDurationMs))
	}
	if cfg.VAD.PauseThresholdMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.pause_threshold_ms %d must be positive", cfg.VAD.PauseThresholdMs))
	}

	if cfg.Correction.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("correction.queue_size %d must not be negative", cfg.Correction.QueueSize))
	}

	if cfg.Injection.RestoreDelayMs < 0 {
		errs = append(errs, fmt.Errorf("injection.restore_delay_ms %d must not be negative", cfg.Injection.RestoreDelayMs))
	}
	if cfg.Injection.StrategyTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("injection.strategy_timeout_ms %d must not be negative", cfg.Injection.StrategyTimeoutMs))
	}

	validName := false
	for _, name := range validRecognizers {
		if cfg.Recognizer.Name == name {
			validName = true
			break
		}
	}
	if !validName {
		errs = append(errs, fmt.Errorf("recognizer.name %q is invalid; valid values: mock, exec", cfg.Recognizer.Name))
	}
	if cfg.Recognizer.Name == "exec" && cfg.Recognizer.Command == "" {
		errs = append(errs, errors.New("recognizer.command is required for the exec backend"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
