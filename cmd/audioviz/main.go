package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/petems/audioviz/internal/app"
	"github.com/petems/audioviz/internal/audio"
	"github.com/petems/audioviz/internal/capture"
	"github.com/petems/audioviz/internal/config"
	"github.com/petems/audioviz/internal/engine"
	"github.com/petems/audioviz/internal/logging"
	"github.com/petems/audioviz/internal/metrics"
	"github.com/petems/audioviz/internal/permissions"
	"github.com/petems/audioviz/internal/playlist"
	"github.com/petems/audioviz/internal/relay"
	"github.com/petems/audioviz/internal/switcher"
	"github.com/petems/audioviz/internal/tray"
	"github.com/petems/audioviz/internal/window"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "audioviz",
		Short:        "Audio-reactive terminal visualizer",
		Version:      fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", fmt.Sprintf("config file (default %s)", config.Path()))
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("backend", "portaudio", "audio backend: portaudio, malgo, synthetic")

	f := rootCmd.Flags()
	f.String("device", "", "capture device ID (see audioviz devices); empty uses the default")
	f.Int("fps", 60, "target frame rate, 0 for unbounded")
	f.String("preset-path", "/usr/local/share/projectM/presets", "directory scanned for presets")
	f.Bool("tray", false, "show the system tray device menu")
	f.String("metrics-listen", "", "address for the Prometheus /metrics endpoint")

	rootCmd.AddCommand(newDevicesCmd(&configPath))
	return rootCmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := logging.New(cfg.LogLevel, cfg.LogConsole)
	log.Info().Str("version", Version).Str("commit", Commit).Msg("audioviz starting...")

	// macOS requires explicit microphone approval; without it capture is silent
	if status, err := permissions.EnsureMicrophone(); err != nil {
		log.Warn().Err(err).Stringer("status", status).Msg("Microphone access not granted, audio may be silent")
	}

	keys, err := cfg.Keymap()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if cfg.Metrics.Listen != "" {
		go metrics.Serve(ctx, cfg.Metrics.Listen, reg, log)
	}

	backend := openBackend(cfg, log)
	defer backend.Close()

	dir := audio.NewDirectory(backend, log, m)
	session := capture.NewSession(backend, dir, log, m)
	defer session.Close()

	win := window.OpenTerminal(os.Stdout, log)
	defer win.Close()

	meter := engine.NewMeter(win.Writer(), engine.DefaultMaxSamples)
	presets := playlist.New(meter, nil, log)
	if _, err := presets.AddPath(cfg.PresetPath, true); err != nil {
		log.Warn().Err(err).Msg("No preset directory, using built-in styles")
	}
	if presets.Len() == 0 {
		presets.Add(engine.BuiltinPresets...)
	}
	if err := presets.PlayNext(); err != nil {
		log.Warn().Err(err).Msg("Failed to load first preset")
	}

	// Capture failures are never fatal; the loop renders silence
	if err := session.Start(audio.DeviceID(cfg.Audio.DeviceID)); err != nil {
		log.Warn().Err(err).Msg("Capture not started")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("Shutting down...")
			win.Post(window.Event{Type: window.Quit})
		case <-ctx.Done():
		}
	}()

	appCfg := app.Config{
		Window:    win,
		Engine:    meter,
		Playlist:  presets,
		Relay:     relay.New(session, meter, m),
		Switcher:  switcher.New(dir, session, m, log),
		Keymap:    keys,
		FrameRate: cfg.FrameRate,
		Logger:    log,
		Metrics:   m,
	}

	if !cfg.Tray.Enabled {
		return app.New(appCfg).Run(ctx)
	}

	// Tray UI - MUST run on main thread, so the render loop moves to a goroutine
	trayUI := tray.New(dir, win, Version, Commit, log)
	appCfg.StatusUpdater = trayUI
	appCfg.Devices = session
	application := app.New(appCfg)

	return runWithTray(ctx, cancel, trayUI, application, log)
}

type trayRunner interface {
	Run(onReady func())
	Quit()
}

type loopRunner interface {
	Run(ctx context.Context) error
}

const (
	loopPending int32 = iota
	loopInTray
	loopDirect
)

// runWithTray blocks on the tray and runs the render loop beside it. When
// the tray exits without ever becoming ready the loop runs directly instead.
// Exactly one of the two paths runs the loop.
func runWithTray(ctx context.Context, cancel context.CancelFunc, ui trayRunner, application loopRunner, log zerolog.Logger) error {
	var owner atomic.Int32
	done := make(chan error, 1)
	ui.Run(func() {
		if !owner.CompareAndSwap(loopPending, loopInTray) {
			return
		}
		go func() {
			done <- application.Run(ctx)
			ui.Quit()
		}()
	})
	if owner.CompareAndSwap(loopPending, loopDirect) {
		log.Warn().Msg("System tray unavailable, running without it")
		return application.Run(ctx)
	}
	// the tray can also exit on its own; stop the loop before cleanup
	cancel()
	return <-done
}

// openBackend falls back to the synthetic backend so the visualizer still
// runs when the audio subsystem cannot be initialized.
func openBackend(cfg *config.Config, log zerolog.Logger) audio.Backend {
	backend, err := audio.New(cfg.Backend(), log)
	if err == nil {
		log.Info().Str("backend", backend.Name()).Msg("Audio backend ready")
		return backend
	}
	log.Error().Err(err).Str("backend", cfg.Audio.Backend).Msg("Failed to initialize audio, using synthetic signal")
	return audio.NewSynthetic(cfg.Backend().BufferFrames)
}
