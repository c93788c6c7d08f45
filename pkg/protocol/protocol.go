package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/lucasjones/reggen"
	"github.com/pipebench/pipebench/pkg/channel"
)

const (
	// QueryText is written by a master and expected by its worker on every cycle
	QueryText = "STATUS"
	// ResponseText is the worker's answer
	ResponseText = "OK"
)

var (
	Query    = []byte(QueryText)
	Response = []byte(ResponseText)
)

var (
	// ErrShortRead is returned when the channel is closed before a full payload arrived
	ErrShortRead = fmt.Errorf("channel closed before the full payload arrived")
	// ErrStalled is returned by a worker told to stop answering once its wait is broken
	ErrStalled = fmt.Errorf("worker stalled")
)

// Waiter suspends the caller until an endpoint is ready. *reactor.Task implements it
type Waiter interface {
	WaitReadable(ep *channel.Endpoint) error
	WaitWritable(ep *channel.Endpoint) error
}

// NewReader returns a reader that waits for readability before every read of ep.
// A read that would block goes back to waiting
func NewReader(w Waiter, ep *channel.Endpoint) io.Reader {
	return &readyReader{w: w, ep: ep}
}

// NewWriter returns a writer that waits for writability before every write to ep and only
// returns once the whole buffer is written or an error occurs
func NewWriter(w Waiter, ep *channel.Endpoint) io.Writer {
	return &readyWriter{w: w, ep: ep}
}

type readyReader struct {
	w  Waiter
	ep *channel.Endpoint
}

func (r *readyReader) Read(p []byte) (int, error) {
	for {
		if err := r.w.WaitReadable(r.ep); err != nil {
			return 0, err
		}
		n, err := r.ep.Read(p)
		if err == channel.ErrWouldBlock {
			continue
		}
		return n, err
	}
}

type readyWriter struct {
	w  Waiter
	ep *channel.Endpoint
}

func (w *readyWriter) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if err := w.w.WaitWritable(w.ep); err != nil {
			return n, err
		}
		m, err := w.ep.Write(p[n:])
		n += m
		if err == channel.ErrWouldBlock {
			continue
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadFull reads exactly len(buf) bytes. End of stream before that is reported as ErrShortRead
func ReadFull(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, n, len(buf))
	}
	return err
}

// WriteFull writes all of p, looping over short writes
func WriteFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Corrupt returns a payload of the same length as payload that is guaranteed to differ from it
func Corrupt(payload []byte) ([]byte, error) {
	pattern := fmt.Sprintf("[a-z0-9]{%d}", len(payload))
	for i := 0; i < 16; i++ {
		s, err := reggen.Generate(pattern, len(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to generate corrupt payload: %w", err)
		}
		if len(s) == len(payload) && !bytes.Equal([]byte(s), payload) {
			return []byte(s), nil
		}
	}
	// every byte flipped is always different
	out := make([]byte, len(payload))
	for i, b := range payload {
		out[i] = ^b
	}
	return out, nil
}
