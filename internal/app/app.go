// Package app wires the capture, detection and streaming stages into the facefeed pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/facefeed/internal/capture"
	"github.com/ayusman/facefeed/internal/detector"
	"github.com/ayusman/facefeed/internal/relay"
	"github.com/ayusman/facefeed/internal/server"
)

// Config holds configuration options for the application.
type Config struct {
	// Source is a video file path, stream URL or device ID.
	Source   string
	Capture  capture.Config
	Detector detector.Config
	// Quality is the JPEG quality of streamed frames (1-100).
	Quality int
}

// DefaultConfig returns the stock configuration: the looping demo video at
// 640x360, default cascade parameters and JPEG quality 70.
func DefaultConfig() Config {
	return Config{
		Source:   "dummy_feed.mp4",
		Capture:  capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Quality:  server.DefaultQuality,
	}
}

// Validate reports the first invalid setting in c.
func (c Config) Validate() error {
	switch {
	case c.Source == "":
		return errors.New("source must not be empty")
	case c.Capture.Width <= 0 || c.Capture.Height <= 0:
		return fmt.Errorf("frame size must be positive, got %dx%d", c.Capture.Width, c.Capture.Height)
	case c.Detector.ScaleFactor <= 1:
		return fmt.Errorf("scale factor must be greater than 1, got %v", c.Detector.ScaleFactor)
	case c.Detector.MinNeighbors < 0:
		return fmt.Errorf("min neighbors must not be negative, got %d", c.Detector.MinNeighbors)
	case c.Detector.MinSize.X < 0 || c.Detector.MinSize.Y < 0:
		return fmt.Errorf("min size must not be negative, got %v", c.Detector.MinSize)
	case c.Quality < 1 || c.Quality > 100:
		return fmt.Errorf("jpeg quality must be between 1 and 100, got %d", c.Quality)
	}
	return nil
}

// App owns the pipeline: a Frame Source feeding the raw relay, the Detector
// Gate moving frames to the processed relay, and a fan-out handing each
// streaming client its own relay.
type App struct {
	config   Config
	source   capture.Source
	detector detector.Detector

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	raw       *relay.Relay[*capture.Frame]
	processed *relay.Relay[*capture.Frame]
	fanout    *relay.Fanout[*capture.Frame]
}

// New creates a new App reading from config.Source. The detector is loaded
// from config.Detector on Start unless one is set with SetDetector.
func New(config Config) *App {
	return &App{
		config: config,
		source: capture.NewVideoSource(config.Source),
	}
}

// SetSource replaces the video source. It must be called before Start.
func (a *App) SetSource(s capture.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// SetDetector sets the face detector implementation to use. It must be called before Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Running reports whether the pipeline has been started and not stopped.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Start opens the source and launches the pipeline goroutines.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}

	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open video source %q: %w", a.config.Source, err)
	}

	if a.detector == nil {
		d, err := detector.NewCascadeDetector(a.config.Detector)
		if err != nil {
			a.source.Close()
			return err
		}
		a.detector = d
	}

	fps := a.source.FPS()
	interval := detector.NativeInterval(fps)

	a.raw = relay.New(capture.ReleaseFrame)
	a.processed = relay.New(capture.ReleaseFrame)
	a.fanout = relay.NewFanout(a.processed, capture.CloneFrame, capture.ReleaseFrame)

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.startPipeline(runCtx, interval)

	log.Info().Str("component", "app").
		Str("source", a.config.Source).
		Float64("fps", fps).
		Dur("interval", interval).
		Int("width", a.config.Capture.Width).
		Int("height", a.config.Capture.Height).
		Msg("pipeline started")
	return nil
}

// Stop halts the pipeline, ends every open stream and releases resources.
// Calling Stop on an app that is not running is a no-op.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return
	}

	// Cancel the capture loop, then close the relays to wake blocked stages
	a.cancel()
	a.cancel = nil
	a.raw.Close()
	a.processed.Close()

	a.wg.Wait()

	if err := a.source.Close(); err != nil {
		log.Error().Err(err).Str("component", "app").Msg("error closing video source")
	}
	if err := a.detector.Close(); err != nil {
		log.Error().Err(err).Str("component", "app").Msg("error closing detector")
	}

	log.Info().Str("component", "app").
		Uint64("raw_drops", a.raw.Drops()).
		Uint64("processed_drops", a.processed.Drops()).
		Msg("pipeline stopped")
}

// Feed returns the fan-out streaming clients subscribe to, or nil before Start.
func (a *App) Feed() *relay.Fanout[*capture.Frame] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fanout
}

// Handler returns the HTTP handler serving the index page and the video feed.
// It must be called after Start.
func (a *App) Handler() http.Handler {
	return server.New(server.Config{
		Feed:    a.Feed(),
		Quality: a.config.Quality,
	})
}
