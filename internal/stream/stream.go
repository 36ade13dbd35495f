// Package stream encodes a sequence of GraphQL response parts onto the
// wire for the two incremental-delivery transports spec §6.2 names:
// multipart/mixed ("boundary") and text/event-stream (SSE). Both
// encoders are plain net/http + mime/multipart + encoding/json: no pack
// repo ships a GraphQL-specific incremental-delivery codec, so this is
// one of the few components built directly on the standard library
// (documented in DESIGN.md) rather than a third-party dependency.
package stream

import (
	"bufio"
	"fmt"
	"mime/multipart"
	"net/http"

	json "github.com/goccy/go-json"
)

// Part is one payload of an incremental response: the initial payload,
// or a later @defer/subscription increment (spec §4.5, §4.6).
type Part struct {
	Payload interface{}
	// Final marks the last part of the sequence; multipart framing uses
	// it to close the boundary, SSE framing to emit the closing event.
	Final bool
}

// MultipartWriter frames a sequence of Parts as multipart/mixed,
// matching the GraphQL-over-HTTP incremental delivery convention
// (Content-Type: multipart/mixed; boundary="-").
type MultipartWriter struct {
	w  *multipart.Writer
	rw http.ResponseWriter
}

// NewMultipartWriter sets the response headers and returns a writer
// ready to stream Parts.
func NewMultipartWriter(rw http.ResponseWriter) *MultipartWriter {
	mw := multipart.NewWriter(rw)
	mw.SetBoundary("-")
	rw.Header().Set("Content-Type", `multipart/mixed; boundary="-"`)
	rw.Header().Set("Transfer-Encoding", "chunked")
	rw.WriteHeader(http.StatusOK)
	return &MultipartWriter{w: mw, rw: rw}
}

// WritePart emits one framed part and flushes it to the client.
func (m *MultipartWriter) WritePart(p Part) error {
	body, err := json.Marshal(p.Payload)
	if err != nil {
		return fmt.Errorf("stream: marshal part: %w", err)
	}
	part, err := m.w.CreatePart(map[string][]string{
		"Content-Type": {"application/json; charset=utf-8"},
	})
	if err != nil {
		return fmt.Errorf("stream: create multipart part: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return fmt.Errorf("stream: write multipart part: %w", err)
	}
	if f, ok := m.rw.(http.Flusher); ok {
		f.Flush()
	}
	if p.Final {
		return m.w.Close()
	}
	return nil
}

// SSEWriter frames a sequence of Parts as text/event-stream, for
// clients negotiating Accept: text/event-stream (spec §6.2).
type SSEWriter struct {
	w  *bufio.Writer
	rw http.ResponseWriter
}

// NewSSEWriter sets the response headers and returns a writer ready to
// stream Parts.
func NewSSEWriter(rw http.ResponseWriter) *SSEWriter {
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.WriteHeader(http.StatusOK)
	return &SSEWriter{w: bufio.NewWriter(rw), rw: rw}
}

// WritePart emits one SSE frame and flushes it to the client: `event:
// complete` for a Final part with a nil Payload, otherwise `event: next`
// (a Final part that carries a Payload is sent as `event: next` only).
func (s *SSEWriter) WritePart(p Part) error {
	if p.Final && p.Payload == nil {
		fmt.Fprint(s.w, "event: complete\ndata:\n\n")
	} else {
		body, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("stream: marshal part: %w", err)
		}
		fmt.Fprintf(s.w, "event: next\ndata: %s\n\n", body)
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	if f, ok := s.rw.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
