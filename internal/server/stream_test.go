package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mattn/go-mjpeg"

	"github.com/ayusman/facefeed/internal/capture"
	"github.com/ayusman/facefeed/internal/fixtures"
	"github.com/ayusman/facefeed/internal/relay"
)

func TestJPEGEncoder_Deterministic(t *testing.T) {
	mat := fixtures.SolidFrame(fixtures.Width, fixtures.Height, 30, 120, 200)
	defer mat.Close()

	enc := JPEGEncoder{Quality: 70}

	first, err := enc.Encode(*mat)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, err := enc.Encode(*mat)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("encoding the same frame twice produced different bytes")
	}

	if len(first) < 4 || first[0] != 0xFF || first[1] != 0xD8 {
		t.Error("output does not start with a JPEG SOI marker")
	}
}

func TestJPEGEncoder_QualityChangesOutput(t *testing.T) {
	// Noise-free frames compress alike at any quality, so draw some detail
	mat := fixtures.SolidFrame(fixtures.Width, fixtures.Height, 0, 0, 0)
	defer mat.Close()
	for y := 0; y < fixtures.Height; y += 4 {
		for x := 0; x < fixtures.Width; x += 3 {
			mat.SetUCharAt(y, x*3+1, uint8((x*y)%255))
		}
	}

	low, err := JPEGEncoder{Quality: 10}.Encode(*mat)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	high, err := JPEGEncoder{Quality: 95}.Encode(*mat)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if len(low) >= len(high) {
		t.Errorf("quality 10 output (%d bytes) should be smaller than quality 95 (%d bytes)", len(low), len(high))
	}
}

func TestWritePart(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}

	if err := writePart(&buf, payload); err != nil {
		t.Fatalf("writePart() error = %v", err)
	}

	want := "--frame\r\nContent-Type: image/jpeg\r\n\r\n" + string(payload) + "\r\n"
	if buf.String() != want {
		t.Errorf("writePart() wrote %q, want %q", buf.String(), want)
	}
}

// testFeed is a running fan-out fed with synthetic frames.
type testFeed struct {
	src    *relay.Relay[*capture.Frame]
	fanout *relay.Fanout[*capture.Frame]
	stop   chan struct{}
	done   chan struct{}
}

func newTestFeed(t *testing.T) *testFeed {
	t.Helper()

	src := relay.New(capture.ReleaseFrame)
	f := &testFeed{
		src:    src,
		fanout: relay.NewFanout(src, capture.CloneFrame, capture.ReleaseFrame),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go f.fanout.Run()

	go func() {
		defer close(f.done)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		var seq uint64
		for {
			select {
			case <-f.stop:
				return
			case <-ticker.C:
				seq++
				v := uint8(seq % 256)
				src.Publish(&capture.Frame{
					Mat:       *fixtures.SolidFrame(fixtures.Width, fixtures.Height, v, v, v),
					Timestamp: time.Now(),
					Seq:       seq,
				})
			}
		}
	}()

	return f
}

// Close stops publishing and closes the feed, which ends every stream.
func (f *testFeed) Close() {
	close(f.stop)
	<-f.done
	f.src.Close()
}

func openStream(t *testing.T, ctx context.Context, url string) (*http.Response, *mjpeg.Decoder) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+StreamPath, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s error = %v", StreamPath, err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != StreamContentType {
		t.Fatalf("Content-Type = %q, want %q", ct, StreamContentType)
	}

	dec, err := mjpeg.NewDecoderFromResponse(resp)
	if err != nil {
		t.Fatalf("NewDecoderFromResponse() error = %v", err)
	}

	return resp, dec
}

func decodeFrames(t *testing.T, name string, dec *mjpeg.Decoder, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		img, err := dec.Decode()
		if err != nil {
			t.Fatalf("client %s: Decode() frame %d error = %v", name, i, err)
		}
		b := img.Bounds()
		if b.Dx() != fixtures.Width || b.Dy() != fixtures.Height {
			t.Errorf("client %s: frame %d is %dx%d, want %dx%d", name, i, b.Dx(), b.Dy(), fixtures.Width, fixtures.Height)
		}
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	feed := newTestFeed(t)
	defer feed.Close()

	h := NewStreamHandler(feed.fanout, DefaultQuality)

	req := httptest.NewRequest(http.MethodPost, StreamPath, nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if feed.fanout.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", feed.fanout.Subscribers())
	}
}

func TestStreamHandler_TwoClients(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	feed := newTestFeed(t)
	ts := httptest.NewServer(New(Config{Feed: feed.fanout}))
	defer ts.Close()
	// Closing the feed first ends the remaining stream so ts.Close can return
	defer feed.Close()

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()

	respA, decA := openStream(t, ctxA, ts.URL)
	defer respA.Body.Close()
	respB, decB := openStream(t, ctxB, ts.URL)
	defer respB.Body.Close()

	decodeFrames(t, "A", decA, 3)
	decodeFrames(t, "B", decB, 3)

	// Disconnect A
	cancelA()
	respA.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for feed.fanout.Subscribers() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := feed.fanout.Subscribers(); got != 1 {
		t.Fatalf("Subscribers() = %d after disconnect, want 1", got)
	}

	// B keeps receiving a live feed
	decodeFrames(t, "B", decB, 5)
}

func TestStreamHandler_EndsWhenFeedStops(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	feed := newTestFeed(t)
	ts := httptest.NewServer(New(Config{Feed: feed.fanout}))
	defer ts.Close()

	resp, dec := openStream(t, context.Background(), ts.URL)
	defer resp.Body.Close()

	decodeFrames(t, "A", dec, 1)

	feed.Close()

	// After the feed closes the response body ends
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := dec.Decode(); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the feed stopped")
	}
}
