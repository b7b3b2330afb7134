// Package detector provides face detection and the detection gate of the pipeline.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect analyzes a grayscale frame and returns the face rectangles found.
	// Returns an empty slice if no faces are detected.
	Detect(gray gocv.Mat) ([]image.Rectangle, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// CascadePath is the Haar cascade XML file to load.
	CascadePath string

	// ScaleFactor is how much the image is shrunk at each detection scale (> 1).
	ScaleFactor float64

	// MinNeighbors is how many overlapping candidates a detection needs to be kept.
	MinNeighbors int

	// MinSize is the smallest face size, in pixels, that is reported.
	MinSize image.Point
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		CascadePath:  "haarcascade_frontalface_default.xml",
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      image.Pt(30, 30),
	}
}
