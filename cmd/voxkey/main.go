// Command voxkey is a real-time dictation service: it reads captured audio,
// cuts it into speech segments, transcribes and corrects each segment, and
// types the result into the focused application.
//
// Audio comes either from stdin as raw little-endian 16-bit PCM (pipe a
// capture tool in, e.g. "arecord -f S16_LE -r 44100 -c 1 | voxkey") or from
// a WAV file via -wav for offline runs and testing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxkey/voxkey/internal/bridge"
	"github.com/voxkey/voxkey/internal/clarity"
	"github.com/voxkey/voxkey/internal/config"
	"github.com/voxkey/voxkey/internal/inject"
	"github.com/voxkey/voxkey/internal/observe"
	"github.com/voxkey/voxkey/internal/pipeline"
	"github.com/voxkey/voxkey/internal/vad"
	"github.com/voxkey/voxkey/pkg/audio"
	"github.com/voxkey/voxkey/pkg/provider/stt"
	"github.com/voxkey/voxkey/pkg/provider/stt/execstt"
	sttmock "github.com/voxkey/voxkey/pkg/provider/stt/mock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	wavPath := flag.String("wav", "", "replay a WAV file instead of reading PCM from stdin")
	flag.Parse()

	// ── Configuration ──────────────────────────────────────────────────────
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxkey: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	slog.Info("voxkey starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"recognizer", cfg.Recognizer.Name,
	)

	// ── Signal context ─────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ──────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxkey"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Collaborators ──────────────────────────────────────────────────────
	rec, err := buildRecognizer(cfg.Recognizer)
	if err != nil {
		slog.Error("failed to build recognizer", "err", err)
		return 1
	}

	clip, err := inject.SystemClipboard()
	if err != nil {
		slog.Error("no clipboard tool found; install wl-clipboard or xclip", "err", err)
		return 1
	}
	injector, err := inject.NewManager(clip, inject.DefaultStrategies(), inject.Config{
		StrategyTimeout: cfg.Injection.StrategyTimeout(),
		RestoreDelay:    cfg.Injection.RestoreDelay(),
		BreakerFailures: cfg.Injection.BreakerFailures,
		BreakerCooldown: cfg.Injection.BreakerCooldown(),
	})
	if err != nil {
		slog.Error("failed to build injection manager", "err", err)
		return 1
	}
	defer injector.Close()

	var clarityOpts []clarity.Option
	if len(cfg.Correction.Vocabulary) > 0 {
		var vocabOpts []clarity.VocabOption
		if cfg.Correction.PhoneticThreshold > 0 {
			vocabOpts = append(vocabOpts, clarity.WithPhoneticThreshold(cfg.Correction.PhoneticThreshold))
		}
		if cfg.Correction.FuzzyThreshold > 0 {
			vocabOpts = append(vocabOpts, clarity.WithFuzzyThreshold(cfg.Correction.FuzzyThreshold))
		}
		clarityOpts = append(clarityOpts, clarity.WithVocabulary(
			clarity.NewVocabulary(cfg.Correction.Vocabulary, vocabOpts...)))
	}
	corrector := clarity.New(clarity.Config{
		RuleBased: cfg.Correction.RuleBased,
		QueueSize: cfg.Correction.QueueSize,
	}, clarityOpts...)

	// ── Audio source ───────────────────────────────────────────────────────
	inputRate := cfg.Audio.InputRate
	var frames <-chan audio.AudioFrame
	if *wavPath != "" {
		var rate int
		frames, rate, err = replayWAV(ctx, *wavPath)
		if err != nil {
			slog.Error("failed to open wav file", "path", *wavPath, "err", err)
			return 1
		}
		inputRate = rate
		slog.Info("replaying wav file", "path", *wavPath, "rate", rate)
	} else {
		frames = readPCMStream(ctx, os.Stdin, inputRate, cfg.Audio.Channels, logger)
	}

	// ── Pipeline ───────────────────────────────────────────────────────────
	events := bridge.New(logger)
	defer events.Close()

	pipe, err := pipeline.New(pipeline.Config{
		InputRate:  inputRate,
		TargetRate: cfg.Audio.TargetRate,
		Quality:    cfg.Audio.Quality,
		VAD: vad.Config{
			FrameDuration:    cfg.VAD.FrameDuration(),
			SilenceThreshold: cfg.VAD.SilenceThreshold,
			PauseThreshold:   cfg.VAD.PauseThreshold(),
		},
	}, pipeline.Deps{
		Recognizer: rec,
		Corrector:  corrector,
		Injector:   injector,
		Publisher:  events,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	// ── Run ────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipe.Run(gctx, frames) })
	if cfg.Server.ListenAddr != "" {
		g.Go(func() error { return serveHTTP(gctx, cfg.Server.ListenAddr, events) })
	}

	slog.Info("dictation ready, press Ctrl+C to stop")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig reads the config file, falling back to built-in defaults when
// the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && path == "config.yaml" {
		return config.Default(), nil
	}
	return nil, err
}

// buildRecognizer constructs the configured speech-to-text backend.
func buildRecognizer(cfg config.RecognizerConfig) (stt.Recognizer, error) {
	switch cfg.Name {
	case "exec":
		return execstt.New(cfg.Command)
	case "mock":
		slog.Warn("using mock recognizer; transcripts will be empty")
		return &sttmock.Recognizer{}, nil
	default:
		return nil, fmt.Errorf("unknown recognizer %q", cfg.Name)
	}
}

// serveHTTP exposes /metrics and the /ws event stream until ctx is done.
func serveHTTP(ctx context.Context, addr string, events *bridge.Bridge) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", events.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
