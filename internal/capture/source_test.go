package capture

import (
	"errors"
	"testing"
)

func TestNewVideoSource(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{
			name: "file path",
			uri:  "dummy_feed.mp4",
		},
		{
			name: "device id",
			uri:  "0",
		},
		{
			name: "stream url",
			uri:  "rtsp://127.0.0.1/stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewVideoSource(tt.uri)

			if src == nil {
				t.Fatal("NewVideoSource returned nil")
			}

			// Source should not be open initially
			if src.IsOpen() {
				t.Error("source should not be open initially")
			}

			if got := src.FPS(); got != 0 {
				t.Errorf("FPS() = %v, want 0 before Open()", got)
			}
		})
	}
}

func TestVideoSource_ReadFrame_NotOpened(t *testing.T) {
	src := NewVideoSource("dummy_feed.mp4")

	_, err := src.ReadFrame()
	if !errors.Is(err, ErrSourceNotOpen) {
		t.Errorf("ReadFrame() error = %v, want %v", err, ErrSourceNotOpen)
	}
}

func TestVideoSource_Rewind_NotOpened(t *testing.T) {
	src := NewVideoSource("dummy_feed.mp4")

	if err := src.Rewind(); !errors.Is(err, ErrSourceNotOpen) {
		t.Errorf("Rewind() error = %v, want %v", err, ErrSourceNotOpen)
	}
}

func TestVideoSource_Close_NotOpened(t *testing.T) {
	src := NewVideoSource("dummy_feed.mp4")

	// Close on not opened source should not panic and return nil
	if err := src.Close(); err != nil {
		t.Errorf("Close() on not opened source should return nil, got: %v", err)
	}
}

func TestVideoSource_Open_MissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	src := NewVideoSource("does-not-exist.mp4")

	if err := src.Open(); err == nil {
		src.Close()
		t.Fatal("Open() should fail for a missing file")
	}

	if src.IsOpen() {
		t.Error("IsOpen() should return false after a failed Open()")
	}
}
