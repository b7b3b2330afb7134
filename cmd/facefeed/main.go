package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/facefeed/internal/app"
)

// Version is the application version.
const Version = "0.1.0"

var (
	cfg      = app.DefaultConfig()
	addr     string
	logLevel string
	minSize  int
)

var rootCmd = &cobra.Command{
	Use:     "facefeed",
	Short:   "Stream a looping video with face detection as MJPEG over HTTP",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Detector.MinSize = image.Pt(minSize, minSize)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return serve(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.Source, "source", "s", cfg.Source, "Video file, stream URL or device ID to loop")
	flags.IntVar(&cfg.Capture.Width, "width", cfg.Capture.Width, "Width frames are resized to")
	flags.IntVar(&cfg.Capture.Height, "height", cfg.Capture.Height, "Height frames are resized to")
	flags.BoolVar(&cfg.Capture.Realtime, "realtime", false, "Pace playback at the source frame rate instead of decoding as fast as possible")
	flags.StringVar(&cfg.Detector.CascadePath, "cascade", cfg.Detector.CascadePath, "Haar cascade classifier XML file")
	flags.Float64Var(&cfg.Detector.ScaleFactor, "scale-factor", cfg.Detector.ScaleFactor, "Detection scale factor (> 1)")
	flags.IntVar(&cfg.Detector.MinNeighbors, "min-neighbors", cfg.Detector.MinNeighbors, "Minimum neighbor count for a detection")
	flags.IntVar(&minSize, "min-size", cfg.Detector.MinSize.X, "Minimum face size in pixels")
	flags.IntVarP(&cfg.Quality, "quality", "q", cfg.Quality, "JPEG quality of streamed frames (1-100)")
	flags.StringVarP(&addr, "addr", "a", "0.0.0.0:5000", "HTTP listen address")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// serve runs the pipeline and HTTP server until ctx is cancelled.
func serve(ctx context.Context) error {
	a := app.New(cfg)
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	server := &http.Server{
		Addr:    addr,
		Handler: a.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "server").Msgf("serving the video feed at http://%s/", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Str("component", "server").Msg("shutting down")

	// Streams never finish on their own; stopping the pipeline ends them
	a.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func main() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
