// Package capture provides looping video capture using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings
const (
	DefaultWidth  = 640
	DefaultHeight = 360
	DefaultFPS    = 30
)

var (
	// ErrSourceNotOpen is returned when trying to read from a source that is not open.
	ErrSourceNotOpen = errors.New("video source is not open")

	// ErrNoFrame is returned when the decoder has no frame to give, either at
	// end of stream or because the frame could not be decoded.
	ErrNoFrame = errors.New("no frame available")
)

// Source defines the interface for video sources feeding the pipeline.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	Rewind() error
	FPS() float64
	IsOpen() bool
}

// videoSource reads frames from a video file, stream URL or device using GoCV.
type videoSource struct {
	uri     string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewVideoSource creates a Source for the given file path, URL or numeric device ID.
func NewVideoSource(uri string) Source {
	return &videoSource{uri: uri}
}

// Open opens the underlying decoder.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.uri)
	if err != nil {
		return err
	}

	if !capture.IsOpened() {
		capture.Close()
		return errors.New("unable to open video source " + s.uri)
	}

	s.capture = capture
	s.running = true

	return nil
}

// Close closes the decoder and releases resources.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame decodes the next frame.
// The caller is responsible for closing the returned Mat.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}

	return &mat, nil
}

// Rewind seeks back to the first frame.
func (s *videoSource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return ErrSourceNotOpen
	}

	s.capture.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

// FPS returns the frame rate reported by the decoder, or 0 if unknown.
func (s *videoSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return 0
	}
	return s.capture.Get(gocv.VideoCaptureFPS)
}

// IsOpen returns true if the source is currently open.
func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
