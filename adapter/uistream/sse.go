package uistream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Header values of a UI message stream response
const (
	HeaderStream   = "x-vercel-ai-ui-message-stream"
	HeaderProtocol = "x-vercel-ai-protocol"
)

// SetHeaders sets the response headers of a UI message stream
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set(HeaderStream, "v1")
	h.Set(HeaderProtocol, "data")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

var donePayload = []byte("[DONE]")

// Encoder writes events as server-sent events and flushes after each one
type Encoder struct {
	w  io.Writer
	rc *http.ResponseController
}

// NewEncoder creates an Encoder. When w is an http.ResponseWriter every event
// is flushed to the client as soon as it is written.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if rw, ok := w.(http.ResponseWriter); ok {
		enc.rc = http.NewResponseController(rw)
	}
	return enc
}

// Encode writes one event as a "data: {json}" line followed by a blank line
func (e *Encoder) Encode(ev Event) error {
	payload := donePayload
	if ev.Type != TypeDone {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal %s event: %w", ev.Type, err)
		}
		payload = data
	}

	buf := make([]byte, 0, len(payload)+8)
	buf = append(buf, "data: "...)
	buf = append(buf, payload...)
	buf = append(buf, "\n\n"...)
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s event: %w", ev.Type, err)
	}
	if e.rc != nil {
		if err := e.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return fmt.Errorf("failed to flush %s event: %w", ev.Type, err)
		}
	}
	return nil
}

// RawEvent is a decoded event with its original JSON
type RawEvent struct {
	Event
	Raw json.RawMessage
}

// Decoder reads a UI message stream
type Decoder struct {
	s *bufio.Scanner
}

// NewDecoder creates a Decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Decoder{s: s}
}

// Next returns the next event, Done included. It returns io.EOF when the
// reader is exhausted.
func (d *Decoder) Next() (RawEvent, error) {
	for d.s.Scan() {
		line := strings.TrimRight(d.s.Text(), "\r")
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == string(donePayload) {
			return RawEvent{Event: Done}, nil
		}

		var ev Event
		dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
		dec.UseNumber()
		if err := dec.Decode(&ev); err != nil {
			return RawEvent{}, fmt.Errorf("failed to decode event %q: %w", payload, err)
		}
		return RawEvent{Event: ev, Raw: json.RawMessage(payload)}, nil
	}
	if err := d.s.Err(); err != nil {
		return RawEvent{}, fmt.Errorf("failed to read stream: %w", err)
	}
	return RawEvent{}, io.EOF
}
