package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"intentd/internal/catalog"
	"intentd/internal/common/fsutil"
	"intentd/internal/config"
	"intentd/internal/engine"
	"intentd/internal/httpapi"
	"intentd/internal/probe"
	"intentd/internal/session"
	"intentd/pkg/types"
)

const shutdownGrace = 5 * time.Second

func newLogger(cfg config.LogConfig) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// loadRegistry resolves the registry from the configured sources: the
// manifest when given, the models directory scan as fallback. Failures
// degrade to an empty catalog; the daemon still starts.
func loadRegistry(cfg config.CatalogConfig, log zerolog.Logger) []types.RegistryEntry {
	if cfg.ManifestPath != "" {
		entries, err := catalog.LoadManifest(cfg.ManifestPath)
		if err == nil {
			log.Info().Int("models", len(entries)).Str("manifest", cfg.ManifestPath).Msg("registry loaded")
			return entries
		}
		log.Error().Err(err).Str("manifest", cfg.ManifestPath).Msg("manifest load failed")
	}
	if cfg.ModelsDir != "" {
		entries, err := catalog.ScanDir(cfg.ModelsDir)
		if err != nil {
			log.Error().Err(err).Str("dir", cfg.ModelsDir).Msg("models dir scan failed")
			return nil
		}
		log.Info().Int("models", len(entries)).Str("dir", cfg.ModelsDir).Msg("registry scanned")
		return entries
	}
	log.Warn().Msg("no registry source configured; catalog is empty")
	return nil
}

func buildBridge(cfg config.EngineConfig, log zerolog.Logger) (engine.Bridge, error) {
	if cfg.Mode == "inprocess" {
		b, err := engine.NewInProcess(engine.InProcessConfig{
			CtxSize:   cfg.CtxSize,
			Threads:   cfg.Threads,
			GPULayers: cfg.GPULayers,
		}, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	bin, err := fsutil.ExpandHome(cfg.Bin)
	if err != nil {
		return nil, err
	}
	if strings.ContainsRune(bin, os.PathSeparator) && !fsutil.PathExists(bin) {
		log.Warn().Str("bin", bin).Msg("engine binary not found; loads will fail until it exists")
	}
	return engine.NewSubprocess(engine.SubprocessConfig{
		Bin:          bin,
		Host:         cfg.Host,
		PortStart:    cfg.PortStart,
		PortEnd:      cfg.PortEnd,
		CtxSize:      cfg.CtxSize,
		GPULayers:    cfg.GPULayers,
		Threads:      cfg.Threads,
		ExtraArgs:    cfg.ExtraArgs,
		ReadyTimeout: cfg.ReadyTimeout(),
	}, log), nil
}

func runServe(cfg config.Config) error {
	log := newLogger(cfg.Log)

	baseCtx, stop := context.WithCancel(context.Background())
	defer stop()

	entries := loadRegistry(cfg.Catalog, log)

	bridge, err := buildBridge(cfg.Engine, log.With().Str("component", "engine").Logger())
	if err != nil {
		log.Error().Err(err).Msg("engine bridge unavailable; model loads will be rejected")
		bridge = nil
	}

	hub := httpapi.NewEventHub()
	mgr := session.New(session.Config{
		Registry:     entries,
		Filter:       filterOptions(cfg.Catalog),
		Bridge:       bridge,
		Notifier:     hub,
		Log:          log.With().Str("component", "session").Logger(),
		SystemPrompt: cfg.Generation.SystemPrompt,
		Temperature:  cfg.Generation.Temperature,
		MaxTokens:    cfg.Generation.MaxTokens,
		GenTimeout:   cfg.Generation.Timeout(),
		LowMemoryGB:  cfg.Probe.LowMemoryGB,
	})

	// The probe runs in the background; state shows the checking
	// narrative until the verdict lands.
	go func() {
		res := probe.New(log.With().Str("component", "probe").Logger()).Run(baseCtx)
		mgr.ApplyProbeResult(res)
	}()

	if cfg.Catalog.ManifestPath != "" {
		wlog := log.With().Str("component", "catalog").Logger()
		manifest := cfg.Catalog.ManifestPath
		go func() {
			err := catalog.WatchManifest(baseCtx, wlog, manifest, 0, func() {
				entries, err := catalog.LoadManifest(manifest)
				if err != nil {
					wlog.Warn().Err(err).Msg("manifest reload failed")
					return
				}
				mgr.SetCatalog(entries)
				wlog.Info().Int("models", len(entries)).Msg("registry reloaded")
			})
			if err != nil {
				wlog.Warn().Err(err).Msg("manifest watcher unavailable")
			}
		}()
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.Server.CORSEnabled, cfg.Server.CORSOrigins, cfg.Server.CORSMethods, cfg.Server.CORSHeaders)
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: httpapi.NewMux(mgr, hub)}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("intentd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	}

	// Cancel long-lived handlers and watchers first so Shutdown can
	// drain the event streams.
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("session close error")
	}
	if bridge != nil {
		if err := bridge.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("bridge close error")
		}
	}
	return nil
}
