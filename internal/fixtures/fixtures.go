// Package fixtures synthesises video frames for tests.
package fixtures

import (
	"gocv.io/x/gocv"
)

// Frame size used by fixtures unless a test asks for another.
const (
	Width  = 640
	Height = 360
)

// SolidFrame returns a BGR frame of the given size filled with a single color.
// The caller is responsible for closing the returned Mat.
func SolidFrame(width, height int, b, g, r uint8) *gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(b), float64(g), float64(r), 0),
		height, width, gocv.MatTypeCV8UC3,
	)
	return &mat
}

// Sequence returns n frames of the given size, each a slightly brighter gray
// than the previous one so frames can be told apart.
func Sequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		v := uint8((i * 10) % 256)
		frames = append(frames, SolidFrame(width, height, v, v, v))
	}
	return frames
}

// CloseAll closes every frame in frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
