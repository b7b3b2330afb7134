package server

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/facefeed/internal/capture"
	"github.com/ayusman/facefeed/internal/relay"
)

// Multipart framing of the video feed.
const (
	Boundary          = "frame"
	StreamContentType = "multipart/x-mixed-replace; boundary=" + Boundary
)

var (
	partHeader  = []byte("--" + Boundary + "\r\nContent-Type: image/jpeg\r\n\r\n")
	partTrailer = []byte("\r\n")
)

// Feed hands out a private relay of processed frames to each streaming client.
type Feed interface {
	Subscribe(id string) *relay.Relay[*capture.Frame]
	Unsubscribe(id string)
}

// StreamHandler serves processed frames as an MJPEG multipart stream.
type StreamHandler struct {
	feed    Feed
	encoder JPEGEncoder
}

// NewStreamHandler creates a new StreamHandler reading from feed.
func NewStreamHandler(feed Feed, quality int) *StreamHandler {
	return &StreamHandler{
		feed:    feed,
		encoder: JPEGEncoder{Quality: quality},
	}
}

// ServeHTTP streams frames to one client until it disconnects or the feed stops.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := uuid.NewString()
	logger := log.With().Str("component", "stream").Str("client", id).Str("remote", r.RemoteAddr).Logger()

	frames := h.feed.Subscribe(id)
	defer h.feed.Unsubscribe(id)

	// Unsubscribing closes the relay, which wakes a Take blocked below
	stop := context.AfterFunc(r.Context(), func() {
		h.feed.Unsubscribe(id)
	})
	defer stop()

	w.Header().Set("Content-Type", StreamContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	logger.Info().Msg("client connected")
	defer func() { logger.Info().Msg("client disconnected") }()

	for {
		frame, ok := frames.Take()
		if !ok {
			return
		}

		buf, err := h.encoder.Encode(frame.Mat)
		frame.Close()
		if err != nil {
			logger.Warn().Err(err).Msg("skipping frame")
			continue
		}

		if err := writePart(w, buf); err != nil {
			logger.Debug().Err(err).Msg("write failed")
			return
		}

		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writePart writes one JPEG as a multipart section.
func writePart(w io.Writer, jpeg []byte) error {
	if _, err := w.Write(partHeader); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := w.Write(partTrailer)
	return err
}
