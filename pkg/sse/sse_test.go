package sse_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agenthive/agenthive/pkg/sse"
)

type noFlushWriter struct {
	http.ResponseWriter
}

func TestNewWriter_SetsStreamHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	if _, err := sse.NewWriter(rec); err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestNewWriter_RejectsNonFlushableWriter(t *testing.T) {
	rec := httptest.NewRecorder()

	_, err := sse.NewWriter(noFlushWriter{rec})
	if !errors.Is(err, sse.ErrStreamingUnsupported) {
		t.Fatalf("NewWriter() = %v, want ErrStreamingUnsupported", err)
	}
}

func TestWriteData_FramesJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	writer, err := sse.NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}

	if err := writer.WriteData(map[string]string{"op": "add"}); err != nil {
		t.Fatalf("WriteData() failed: %v", err)
	}

	want := "data: {\"op\":\"add\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if !rec.Flushed {
		t.Error("response was not flushed after the frame")
	}
}
