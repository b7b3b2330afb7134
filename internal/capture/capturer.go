package capture

import (
	"context"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gocv.io/x/gocv"

	"github.com/ayusman/facefeed/internal/relay"
)

// DefaultRetryDelay is how long the capture loop waits after consecutive
// failed reads before trying again.
const DefaultRetryDelay = 100 * time.Millisecond

// Config holds capture loop settings.
type Config struct {
	// Width and Height are the size every frame is resized to.
	Width  int
	Height int

	// Realtime paces reads at the source frame rate instead of decoding as
	// fast as possible.
	Realtime bool

	// RetryDelay is the back-off after a failed read that follows a rewind.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with the default frame size.
func DefaultConfig() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		RetryDelay: DefaultRetryDelay,
	}
}

// Capturer reads a Source forever, looping at end of stream, and publishes
// resized, timestamped frames.
type Capturer struct {
	source Source
	config Config
	now    func() time.Time
	seq    uint64
}

// NewCapturer creates a Capturer for an already opened source.
func NewCapturer(source Source, config Config) *Capturer {
	if config.Width <= 0 {
		config.Width = DefaultWidth
	}
	if config.Height <= 0 {
		config.Height = DefaultHeight
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	return &Capturer{
		source: source,
		config: config,
		now:    time.Now,
	}
}

// Run captures frames into out until ctx is cancelled.
//
// Read failures are never surfaced: end of stream and decode errors both
// rewind the source and try again. A single failure is retried at once so a
// looping video restarts without a gap; a failure right after a rewind waits
// RetryDelay before the next attempt.
func (c *Capturer) Run(ctx context.Context, out *relay.Relay[*Frame]) error {
	logger := log.With().Str("component", "capture").Logger()

	var limiter *rate.Limiter
	if c.config.Realtime {
		fps := c.source.FPS()
		if fps <= 0 {
			fps = DefaultFPS
		}
		limiter = rate.NewLimiter(rate.Limit(fps), 1)
	}

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return ctx.Err()
			}
		}

		mat, err := c.source.ReadFrame()
		if err != nil {
			failures++
			if failures == 1 {
				logger.Debug().Err(err).Msg("restarting video source")
			}
			if err := c.source.Rewind(); err != nil {
				logger.Warn().Err(err).Msg("rewind failed")
			}
			if failures > 1 {
				if !sleep(ctx, c.config.RetryDelay) {
					return ctx.Err()
				}
			}
			continue
		}
		failures = 0

		c.seq++
		frame := &Frame{
			Mat:       c.resize(mat),
			Timestamp: c.now(),
			Seq:       c.seq,
		}

		out.Publish(frame)
	}
}

// resize scales mat to the configured size, closing mat if a new Mat is made.
func (c *Capturer) resize(mat *gocv.Mat) gocv.Mat {
	if mat.Cols() == c.config.Width && mat.Rows() == c.config.Height {
		return *mat
	}

	resized := gocv.NewMat()
	gocv.Resize(*mat, &resized, image.Pt(c.config.Width, c.config.Height), 0, 0, gocv.InterpolationLinear)
	mat.Close()

	return resized
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
