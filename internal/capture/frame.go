package capture

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Frame is a captured video frame travelling through the pipeline.
//
// A Frame owns its Mat. Whoever holds the frame last must call Close; handing
// a frame to a relay transfers ownership to the relay.
type Frame struct {
	Mat       gocv.Mat
	Timestamp time.Time
	Seq       uint64

	// Detected is set when face detection ran on this frame. Faces holds the
	// rectangles drawn onto Mat and is nil when detection was skipped.
	Detected bool
	Faces    []image.Rectangle
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.Mat.Cols()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.Mat.Rows()
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		Mat:       f.Mat.Clone(),
		Timestamp: f.Timestamp,
		Seq:       f.Seq,
		Detected:  f.Detected,
	}
	if f.Faces != nil {
		c.Faces = append([]image.Rectangle(nil), f.Faces...)
	}
	return c
}

// Close releases the frame's native memory.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// CloneFrame returns a deep copy of f.
func CloneFrame(f *Frame) *Frame { return f.Clone() }

// ReleaseFrame closes f, ignoring nil.
func ReleaseFrame(f *Frame) {
	if f != nil {
		f.Close()
	}
}
