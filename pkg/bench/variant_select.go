package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/channel"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/protocol"
	"github.com/pipebench/pipebench/pkg/reactor"
)

// selectSlot is the master's state for one worker. A slot is either waiting to finish writing a
// query or waiting to finish reading the response, never both
type selectSlot struct {
	index   int
	out     *channel.Endpoint
	in      *channel.Endpoint
	query   protocol.Payload
	cycle   int
	reading bool
	written int
	buf     [len(protocol.ResponseText)]byte
	read    int
	done    bool
}

func (s *selectSlot) payload() []byte {
	if s.query != nil {
		if p := s.query(s.cycle); p != nil {
			return p
		}
	}
	return protocol.Query
}

func (s *selectSlot) close() {
	s.done = true
	s.out.Close()
	s.in.Close()
}

// selectWorkers starts the worker side of a select run. The returned channel yields the combined
// error of the workers once every one of them returned
type selectWorkers func(ctx context.Context) <-chan error

// runSelect runs the workers on a reactor in their own goroutine while this goroutine acts as
// the master, polling all master endpoints in one loop
func (r *run) runSelect(ctx context.Context) (time.Duration, error) {
	re, err := r.newReactor()
	if err != nil {
		return 0, err
	}
	start := func(ctx context.Context) <-chan error {
		done := make(chan error, 1)
		go func() {
			defer re.Close()
			if err := r.spawnWorkers(re); err != nil {
				done <- err
				return
			}
			done <- re.Run(ctx)
		}()
		return done
	}
	return r.selectMaster(ctx, start, func() { re.Close() })
}

// selectMaster runs the master as a single readiness loop over all master endpoints while start
// drives the workers. Slots are looked up by endpoint so finished workers can drop out without
// disturbing the others. abort releases the worker side when the master cannot be set up
func (r *run) selectMaster(ctx context.Context, start selectWorkers, abort func()) (time.Duration, error) {
	poller, err := reactor.NewPoller(r.config.Poller)
	if err != nil {
		abort()
		return 0, err
	}
	defer poller.Close()
	wake, err := channel.NewPair("master-wake")
	if err != nil {
		abort()
		return 0, err
	}
	defer wake.Close()

	slots := make([]*selectSlot, r.config.Workers)
	byOut := make(map[*channel.Endpoint]*selectSlot, r.config.Workers)
	byIn := make(map[*channel.Endpoint]*selectSlot, r.config.Workers)
	for i := range slots {
		s := &selectSlot{
			index: i,
			out:   r.pairs.Inbound[i].W,
			in:    r.pairs.Outbound[i].R,
			query: r.plan.query(i),
		}
		slots[i] = s
		byOut[s.out] = s
		byIn[s.in] = s
	}

	t0 := time.Now()
	workersDone := start(ctx)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_, _ = wake.W.Write([]byte{0})
		case <-stop:
		}
	}()

	masterErr := r.selectLoop(ctx, poller, wake.R, slots, byOut, byIn)
	close(stop)
	if masterErr != nil {
		// unblock workers still waiting on us
		for _, s := range slots {
			if !s.done {
				s.close()
			}
		}
	}
	workerErr := <-workersDone
	elapsed := time.Since(t0)

	var merr *multierror.Error
	if masterErr != nil {
		merr = multierror.Append(merr, masterErr)
	}
	if workerErr != nil {
		merr = multierror.Append(merr, workerErr)
	}
	return elapsed, merr.ErrorOrNil()
}

func (r *run) selectLoop(ctx context.Context, poller reactor.Poller, wake *channel.Endpoint, slots []*selectSlot,
	byOut, byIn map[*channel.Endpoint]*selectSlot) error {
	var (
		ev       reactor.Events
		rd, wr   []*channel.Endpoint
		failures *multierror.Error
	)
	for {
		rd, wr = rd[:0], wr[:0]
		for _, s := range slots {
			switch {
			case s.done:
			case s.reading:
				rd = append(rd, s.in)
			default:
				wr = append(wr, s.out)
			}
		}
		if len(rd) == 0 && len(wr) == 0 {
			return failures.ErrorOrNil()
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("master interrupted: %w", err)
		}
		rd = append(rd, wake)

		if err := poller.Poll(rd, wr, -1, &ev); err != nil {
			return err
		}
		if len(ev.Invalid) > 0 {
			return &errors2.UsageError{Op: "poll", Endpoint: ev.Invalid[0].String(), Err: reactor.ErrInvalidEndpoint}
		}

		for _, ep := range ev.Readable {
			if ep == wake {
				continue
			}
			s, ok := byIn[ep]
			if !ok {
				return &errors2.UsageError{Op: "resume_readable", Endpoint: ep.String(), Err: reactor.ErrNoTask}
			}
			if err := r.selectRead(s); err != nil {
				failures = multierror.Append(failures, err)
				s.close()
			}
		}
		for _, ep := range ev.Writable {
			s, ok := byOut[ep]
			if !ok {
				return &errors2.UsageError{Op: "resume_writable", Endpoint: ep.String(), Err: reactor.ErrNoTask}
			}
			if err := r.selectWrite(s); err != nil {
				failures = multierror.Append(failures, err)
				s.close()
			}
		}
	}
}

func (r *run) selectWrite(s *selectSlot) error {
	p := s.payload()
	n, err := s.out.Write(p[s.written:])
	if err == channel.ErrWouldBlock {
		return nil
	}
	if err != nil {
		return fmt.Errorf("master %d request %d: %w", s.index, s.cycle, err)
	}
	s.written += n
	if s.written < len(p) {
		return nil
	}
	s.written = 0
	s.reading = true
	r.counters.Wrote(s.index)
	return nil
}

func (r *run) selectRead(s *selectSlot) error {
	n, err := s.in.Read(s.buf[s.read:])
	if err == channel.ErrWouldBlock {
		return nil
	}
	if err == io.EOF {
		return fmt.Errorf("master %d request %d: %w: got %d of %d bytes", s.index, s.cycle, protocol.ErrShortRead, s.read, len(s.buf))
	}
	if err != nil {
		return fmt.Errorf("master %d request %d: %w", s.index, s.cycle, err)
	}
	s.read += n
	if s.read < len(s.buf) {
		return nil
	}

	if bytes.Equal(s.buf[:], protocol.Response) {
		r.counters.Read(s.index)
	} else {
		r.counters.Fail(&errors2.ProtocolError{
			Role:     "master",
			Worker:   s.index,
			Request:  s.cycle,
			Expected: protocol.Response,
			Got:      append([]byte(nil), s.buf[:]...),
		})
		log.Warn().Int("worker", s.index).Int("request", s.cycle).Bytes("got", s.buf[:]).Msg("response mismatch")
	}

	s.read = 0
	s.reading = false
	s.cycle++
	if s.cycle == r.config.Requests {
		s.close()
	}
	return nil
}
