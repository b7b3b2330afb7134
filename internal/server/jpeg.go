package server

import (
	"bytes"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultQuality is the JPEG quality used for streamed frames.
const DefaultQuality = 70

// JPEGEncoder compresses frames to JPEG at a fixed quality.
type JPEGEncoder struct {
	Quality int
}

// Encode returns the JPEG bytes of mat. The result is owned by the caller and
// does not reference native memory.
func (e JPEGEncoder) Encode(mat gocv.Mat) ([]byte, error) {
	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}
