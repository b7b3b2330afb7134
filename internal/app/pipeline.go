package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/facefeed/internal/capture"
	"github.com/ayusman/facefeed/internal/detector"
)

// startPipeline launches the three long-running stages. Callers hold a.mu.
//
// Pipeline layout:
//  1. Capturer: source -> raw relay, looping at end of stream
//  2. Gate: raw relay -> processed relay, detecting at most once per native frame interval
//  3. Fanout: processed relay -> one relay per streaming client
//
// The gate is not restarted if detection fails: the processed relay goes
// stale and clients see a frozen feed.
func (a *App) startPipeline(ctx context.Context, interval time.Duration) {
	capturer := capture.NewCapturer(a.source, a.config.Capture)
	gate := detector.NewGate(a.detector, interval)
	raw, processed, fanout := a.raw, a.processed, a.fanout

	a.wg.Add(3)

	go func() {
		defer a.wg.Done()
		if err := capturer.Run(ctx, raw); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("component", "capture").Msg("capture stopped")
		}
	}()

	go func() {
		defer a.wg.Done()
		if err := gate.Run(raw, processed); err != nil {
			log.Error().Err(err).Str("component", "gate").Msg("detector gate stopped")
		}
	}()

	go func() {
		defer a.wg.Done()
		fanout.Run()
	}()
}
