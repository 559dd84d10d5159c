// Package sse implements server-sent event responses. Each payload is
// serialized to JSON and written as a single "data:" frame, flushed
// immediately so clients observe events as they occur.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported indicates the ResponseWriter does not support flushing.
var ErrStreamingUnsupported = fmt.Errorf("sse: streaming not supported")

// Writer frames JSON payloads as server-sent events over an HTTP response.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares the response for event streaming and returns a Writer.
// It sets the event-stream headers and fails if the underlying writer cannot
// be flushed per frame.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteData serializes v to JSON and writes it as a single data frame,
// flushing the response so the client receives it immediately.
func (s *Writer) WriteData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
