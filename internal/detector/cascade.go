package detector

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when Detect is given an empty image.
var ErrEmptyFrame = errors.New("empty frame")

// CascadeDetector finds faces with an OpenCV Haar cascade classifier.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	config     Config
	mu         sync.Mutex
	closed     bool
}

// NewCascadeDetector loads the cascade named by config.CascadePath.
func NewCascadeDetector(config Config) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(config.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", config.CascadePath)
	}

	return &CascadeDetector{
		classifier: classifier,
		config:     config,
	}, nil
}

// Detect runs multi-scale detection on a grayscale image.
func (d *CascadeDetector) Detect(gray gocv.Mat) ([]image.Rectangle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, errors.New("detector is closed")
	}
	if gray.Empty() {
		return nil, ErrEmptyFrame
	}

	faces := d.classifier.DetectMultiScaleWithParams(
		gray,
		d.config.ScaleFactor,
		d.config.MinNeighbors,
		0,
		d.config.MinSize,
		image.Point{}, // no upper bound
	)

	return faces, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.classifier.Close()
}
