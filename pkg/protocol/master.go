package protocol

import (
	"bytes"
	"fmt"
	"io"

	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/pipebench/pipebench/pkg/log"
)

// Master drives one worker: it writes Requests queries to Out and validates each response read
// from In before the next cycle
type Master struct {
	Index    int
	Requests int
	Out      io.Writer
	In       io.Reader
	Counters *Counters

	// Query overrides the query for a cycle
	Query Payload
}

// Run performs every cycle. A response that does not validate is recorded as a failed cycle and
// the master moves on to the next one; only channel errors end it early
func (m *Master) Run() error {
	buf := make([]byte, len(Response))
	for cycle := 0; cycle < m.Requests; cycle++ {
		q := Query
		if m.Query != nil {
			if p := m.Query(cycle); p != nil {
				q = p
			}
		}
		if err := WriteFull(m.Out, q); err != nil {
			return fmt.Errorf("master %d request %d: %w", m.Index, cycle, err)
		}
		m.Counters.Wrote(m.Index)

		if err := ReadFull(m.In, buf); err != nil {
			return fmt.Errorf("master %d request %d: %w", m.Index, cycle, err)
		}
		if !bytes.Equal(buf, Response) {
			perr := &errors2.ProtocolError{
				Role:     "master",
				Worker:   m.Index,
				Request:  cycle,
				Expected: Response,
				Got:      append([]byte(nil), buf...),
			}
			m.Counters.Fail(perr)
			log.Warn().
				Int("worker", m.Index).
				Int("request", cycle).
				Bytes("got", perr.Got).
				Msg("response mismatch")
			continue
		}
		m.Counters.Read(m.Index)
	}
	return nil
}
