package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded frames for testing.
// At the end of the list it reports ErrNoFrame until rewound.
type MockSource struct {
	frames   []*gocv.Mat
	index    int
	fps      float64
	failNext int
	reads    int
	rewinds  int
	mu       sync.Mutex
	running  bool
}

func NewMockSource(frames []*gocv.Mat, fps float64) *MockSource {
	return &MockSource{
		frames: frames,
		fps:    fps,
	}
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}

	s.reads++

	if s.failNext > 0 {
		s.failNext--
		return nil, ErrNoFrame
	}

	if s.index >= len(s.frames) {
		return nil, ErrNoFrame
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockSource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSourceNotOpen
	}

	s.index = 0
	s.rewinds++
	return nil
}

func (s *MockSource) FPS() float64 { return s.fps }

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// FailNext makes the next n reads fail with ErrNoFrame.
func (s *MockSource) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Reads returns how many times ReadFrame was called while open.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Rewinds returns how many times Rewind succeeded.
func (s *MockSource) Rewinds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rewinds
}
