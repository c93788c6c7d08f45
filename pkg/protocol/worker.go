package protocol

import (
	"bytes"
	"fmt"
	"io"

	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/pipebench/pipebench/pkg/log"
)

// Payload picks the bytes sent on a cycle. Returning nil uses the regular payload
type Payload func(cycle int) []byte

// Worker answers Requests queries read from In with a response written to Out
type Worker struct {
	Index    int
	Requests int
	In       io.Reader
	Out      io.Writer

	// Respond overrides the response for a cycle
	Respond Payload
	// Stall reports whether the worker stops answering from a cycle on
	Stall func(cycle int) bool
}

// Run performs the worker side of every cycle. A query that does not match is fatal for this
// worker and returned as a *errors.ProtocolError
func (w *Worker) Run() error {
	buf := make([]byte, len(Query))
	for cycle := 0; cycle < w.Requests; cycle++ {
		if err := ReadFull(w.In, buf); err != nil {
			return fmt.Errorf("worker %d request %d: %w", w.Index, cycle, err)
		}
		if !bytes.Equal(buf, Query) {
			return &errors2.ProtocolError{
				Role:     "worker",
				Worker:   w.Index,
				Request:  cycle,
				Expected: Query,
				Got:      append([]byte(nil), buf...),
			}
		}

		if w.Stall != nil && w.Stall(cycle) {
			log.Debug().Int("worker", w.Index).Int("request", cycle).Msg("stalling")
			// parks on the next query, which the master never sends while it waits for us
			if err := ReadFull(w.In, buf[:1]); err != nil {
				return fmt.Errorf("%w: worker %d request %d: %v", ErrStalled, w.Index, cycle, err)
			}
			return fmt.Errorf("%w: worker %d request %d: unexpected data", ErrStalled, w.Index, cycle)
		}

		resp := Response
		if w.Respond != nil {
			if p := w.Respond(cycle); p != nil {
				resp = p
			}
		}
		if err := WriteFull(w.Out, resp); err != nil {
			return fmt.Errorf("worker %d request %d: %w", w.Index, cycle, err)
		}
	}
	return nil
}
