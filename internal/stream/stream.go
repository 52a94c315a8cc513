// Package stream frames the orchestrator's output — a lazy sequence of
// (content, role, metadata) fragments — into newline-delimited JSON
// StreamDelta frames written to the HTTP response, matching §4.1 of the
// service's streaming contract.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"reportability-engine/internal/chatmodel"
)

const crlf = "\r\n"

// DefaultBufferSize is used when the caller does not override it, matching
// STREAM_BUFFER_SIZE's documented default.
const DefaultBufferSize = 5

// Flusher is satisfied by http.Flusher; accepted as an interface so tests
// can frame into a plain bytes.Buffer without a live HTTP response.
type Flusher interface {
	Flush()
}

// Framer accumulates fragments into per-role-run buffers and writes framed
// StreamDelta JSON objects, each terminated by \r\n, flushing the underlying
// writer after every frame to deliver backpressure to the transport.
type Framer struct {
	w          io.Writer
	flusher    Flusher
	bufferSize int

	bufRole  chatmodel.Role
	bufText  string
	bufCount int

	done bool
}

// New constructs a Framer writing to w. If w also implements Flusher (as
// http.ResponseWriter typically does via http.Flusher), it is flushed after
// every frame. bufferSize <= 0 falls back to DefaultBufferSize.
func New(w io.Writer, bufferSize int) *Framer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	f := &Framer{w: w, bufferSize: bufferSize}
	if fl, ok := w.(Flusher); ok {
		f.flusher = fl
	} else if fl, ok := w.(http.Flusher); ok {
		f.flusher = fl
	}
	return f
}

// Push buffers one content fragment under role with the given metadata.
// Empty content is skipped for buffering purposes but Flush metadata still
// forces a frame boundary. The buffer is flushed as a MessageDelta frame
// when it reaches the configured size or metadata.Flush is set.
func (f *Framer) Push(content string, role chatmodel.Role, meta chatmodel.Metadata) error {
	if f.done {
		return nil
	}
	if content != "" {
		if f.bufCount == 0 {
			f.bufRole = role
		}
		f.bufText += content
		f.bufCount++
	}
	if f.bufCount >= f.bufferSize || meta.Flush {
		return f.flushBuffer()
	}
	return nil
}

func (f *Framer) flushBuffer() error {
	if f.bufCount == 0 {
		return nil
	}
	delta := chatmodel.StreamDelta{Delta: &chatmodel.MessageDeltaPayload{
		Role:    f.bufRole,
		Content: f.bufText,
	}}
	f.bufText = ""
	f.bufCount = 0
	return f.write(delta)
}

// EndWithContext flushes any buffered content then writes exactly one
// terminal ContextDelta frame carrying payload.
func (f *Framer) EndWithContext(payload chatmodel.ContextDeltaPayload) error {
	if f.done {
		return nil
	}
	if err := f.flushBuffer(); err != nil {
		return err
	}
	f.done = true
	return f.write(chatmodel.StreamDelta{
		Delta:   &chatmodel.MessageDeltaPayload{Role: chatmodel.RoleAssistant},
		Context: &payload,
	})
}

// EndWithError discards any buffered content and writes exactly one terminal
// ErrorDelta frame. Per the protocol, a stream ends with either a
// ContextDelta or an ErrorDelta, never both.
func (f *Framer) EndWithError(code, message string) error {
	if f.done {
		return nil
	}
	f.bufText = ""
	f.bufCount = 0
	f.done = true
	return f.write(chatmodel.StreamDelta{Error: &chatmodel.ErrorDeltaPayload{Code: code, Message: message}})
}

// Done reports whether a terminal frame has already been written.
func (f *Framer) Done() bool { return f.done }

func (f *Framer) write(delta chatmodel.StreamDelta) error {
	b, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("marshal stream delta: %w", err)
	}
	if _, err := f.w.Write(b); err != nil {
		return fmt.Errorf("write stream frame: %w", err)
	}
	if _, err := io.WriteString(f.w, crlf); err != nil {
		return fmt.Errorf("write frame terminator: %w", err)
	}
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return nil
}
