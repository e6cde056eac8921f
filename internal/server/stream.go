package server

import (
	"fmt"
	"net/http"
)

// StreamHandler serves the latest annotated frame as MJPEG.
type StreamHandler struct {
	snapshot *Snapshot
}

// NewStreamHandler creates a new StreamHandler over the given snapshot.
func NewStreamHandler(snapshot *Snapshot) *StreamHandler {
	return &StreamHandler{snapshot: snapshot}
}

// ServeHTTP streams MJPEG frames to connected clients, one part per decision.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		jpeg, changed := h.snapshot.Frame()

		if len(jpeg) > 0 {
			if err := writePart(w, jpeg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-h.snapshot.Done():
			return
		case <-changed:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\r\n")
	return err
}
