package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sseKeepalive is how often an idle stream sends a comment line so proxies
// don't time it out.
const sseKeepalive = 30 * time.Second

// sseStream writes Server-Sent Events to a flushing response.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// startSSE sets the event-stream headers. It returns false if the writer
// cannot flush, in which case nothing has been written.
func startSSE(w http.ResponseWriter) (*sseStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseStream{w: w, flusher: flusher}, true
}

// send writes one named event with v as its JSON data.
func (s *sseStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) keepalive() {
	fmt.Fprint(s.w, ": keepalive\n\n")
	s.flusher.Flush()
}
