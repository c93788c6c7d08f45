package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/protocol"
	"github.com/pipebench/pipebench/pkg/result"
)

// Load connects clients times to addr and runs requests STATUS/OK cycles on every connection, one
// goroutine per connection. Like a pipe run it always returns a record; the error is only set
// when the connections could not be opened
func Load(ctx context.Context, addr string, clients, requests int) (*result.Record, error) {
	rec := &result.Record{
		Workers:          clients,
		RequestsPerBatch: requests,
	}
	if clients < 1 || requests < 1 {
		err := fmt.Errorf("need at least one client and one request, got %d and %d", clients, requests)
		rec.Error = err.Error()
		return rec, err
	}
	counters := protocol.NewCounters(clients, requests)
	rec.PendingWrite, rec.PendingRead = counters.Snapshot()

	var d net.Dialer
	conns := make([]net.Conn, 0, clients)
	closeAll := func() {
		for _, c := range conns {
			c.Close()
		}
	}
	for i := 0; i < clients; i++ {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			closeAll()
			err = fmt.Errorf("client %d: %w", i, err)
			rec.Error = err.Error()
			return rec, err
		}
		conns = append(conns, c)
	}
	defer closeAll()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		merr *multierror.Error
	)
	t0 := time.Now()
	for i, c := range conns {
		m := &protocol.Master{
			Index:    i,
			Requests: requests,
			Out:      c,
			In:       c,
			Counters: counters,
		}
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			// hanging up tells the server we are done
			defer c.Close()
			if err := m.Run(); err != nil {
				mu.Lock()
				merr = multierror.Append(merr, err)
				mu.Unlock()
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	var runErr error
	select {
	case <-finished:
		runErr = merr.ErrorOrNil()
	case <-ctx.Done():
		past := time.Now()
		for _, c := range conns {
			_ = c.SetDeadline(past)
		}
		<-finished
		runErr = fmt.Errorf("load interrupted: %w", ctx.Err())
	}
	rec.Time = time.Since(t0).Seconds()

	rec.PendingWrite, rec.PendingRead = counters.Snapshot()
	rec.Success = runErr == nil && counters.Complete()
	rec.Timeout = runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
	failures := counters.Failures()
	switch {
	case runErr != nil:
		rec.Error = runErr.Error()
		log.Warn().Err(runErr).Str("addr", addr).Msg("load did not complete")
	case len(failures) > 0:
		rec.Error = fmt.Sprintf("%d failed cycles, first: %v", len(failures), failures[0])
	}
	return rec, nil
}
