package detector

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gocv.io/x/gocv"

	"github.com/ayusman/facefeed/internal/capture"
	"github.com/ayusman/facefeed/internal/relay"
)

// Annotation style for detected faces.
var (
	// BoxColor is green; gocv maps RGBA onto OpenCV's BGR order.
	BoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	// BoxThickness is the rectangle line width in pixels.
	BoxThickness = 2
)

// NativeInterval returns the time between frames of a source running at fps.
// Unknown or invalid rates fall back to capture.DefaultFPS.
func NativeInterval(fps float64) time.Duration {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		log.Warn().Str("component", "gate").Float64("fps", fps).
			Msgf("source reports no usable frame rate, assuming %d fps", capture.DefaultFPS)
		fps = capture.DefaultFPS
	}
	return time.Duration(float64(time.Second) / fps)
}

// Gate runs face detection on frames spaced at least one native frame
// interval apart and passes every other frame through unannotated.
//
// A Gate is not safe for concurrent use; it belongs to the single goroutine
// that drains the raw relay.
type Gate struct {
	detector  Detector
	interval  time.Duration
	last      time.Time
	processed bool
	logLimit  *rate.Limiter
}

// NewGate creates a Gate that calls d at most once per interval of frame time.
func NewGate(d Detector, interval time.Duration) *Gate {
	return &Gate{
		detector: d,
		interval: interval,
		logLimit: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Process decides whether frame is due for detection and, if so, detects
// faces and draws them onto frame.Mat in place.
//
// Elapsed time is measured between capture timestamps, not wall-clock time
// at processing. A skipped frame is left with Detected=false and no faces.
func (g *Gate) Process(frame *capture.Frame) error {
	frame.Detected = false
	frame.Faces = nil

	if g.processed && frame.Timestamp.Sub(g.last) < g.interval {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Mat.Channels() > 1 {
		gocv.CvtColor(frame.Mat, &gray, gocv.ColorBGRToGray)
	} else {
		frame.Mat.CopyTo(&gray)
	}

	faces, err := g.detector.Detect(gray)
	if err != nil {
		return fmt.Errorf("detect faces in frame %d: %w", frame.Seq, err)
	}

	for _, r := range faces {
		gocv.Rectangle(&frame.Mat, r, BoxColor, BoxThickness)
	}

	frame.Detected = true
	frame.Faces = faces
	g.last = frame.Timestamp
	g.processed = true

	if len(faces) > 0 && g.logLimit.Allow() {
		log.Debug().Str("component", "gate").Int("faces", len(faces)).Uint64("seq", frame.Seq).Msg("faces detected")
	}

	return nil
}

// Run moves frames from in to out through Process until in is closed.
// A detection error stops the gate and is returned; it is not retried.
func (g *Gate) Run(in, out *relay.Relay[*capture.Frame]) error {
	for {
		frame, ok := in.Take()
		if !ok {
			return nil
		}

		if err := g.Process(frame); err != nil {
			frame.Close()
			return err
		}

		out.Publish(frame)
	}
}
