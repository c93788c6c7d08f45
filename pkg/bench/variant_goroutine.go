package bench

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/channel"
)

// runGoroutines hands every endpoint to the runtime as an *os.File and runs a goroutine per
// worker and per master with plain blocking reads and writes. Cancellation expires the deadline
// of every file, which fails the blocked calls
func (r *run) runGoroutines(ctx context.Context) (time.Duration, error) {
	n := r.config.Workers
	workerIn, workerOut := make([]*os.File, n), make([]*os.File, n)
	masterOut, masterIn := make([]*os.File, n), make([]*os.File, n)
	files := make([]*os.File, 0, 4*n)

	detach := func(ep *channel.Endpoint) (*os.File, error) {
		f, err := ep.Detach()
		if err == nil {
			files = append(files, f)
		}
		return f, err
	}
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for i := 0; i < n; i++ {
		var err error
		if workerIn[i], err = detach(r.pairs.Inbound[i].R); err != nil {
			closeAll()
			return 0, err
		}
		if masterOut[i], err = detach(r.pairs.Inbound[i].W); err != nil {
			closeAll()
			return 0, err
		}
		if workerOut[i], err = detach(r.pairs.Outbound[i].W); err != nil {
			closeAll()
			return 0, err
		}
		if masterIn[i], err = detach(r.pairs.Outbound[i].R); err != nil {
			closeAll()
			return 0, err
		}
	}
	defer closeAll()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		merr *multierror.Error
	)
	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		merr = multierror.Append(merr, err)
		mu.Unlock()
	}

	t0 := time.Now()
	for i := 0; i < n; i++ {
		w := r.plan.worker(i, r.config.Requests)
		w.In, w.Out = workerIn[i], workerOut[i]
		in, out := workerIn[i], workerOut[i]

		m := r.plan.master(i, r.config.Requests, r.counters)
		m.Out, m.In = masterOut[i], masterIn[i]
		mOut, mIn := masterOut[i], masterIn[i]

		wg.Add(2)
		go func() {
			defer wg.Done()
			defer in.Close()
			defer out.Close()
			collect(w.Run())
		}()
		go func() {
			defer wg.Done()
			defer mOut.Close()
			defer mIn.Close()
			collect(m.Run())
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	var ctxErr error
	select {
	case <-finished:
	case <-ctx.Done():
		ctxErr = ctx.Err()
		past := time.Now()
		for _, f := range files {
			_ = f.SetDeadline(past)
		}
		<-finished
	}
	elapsed := time.Since(t0)

	if ctxErr != nil {
		// the deadline errors of the interrupted goroutines only restate the interruption
		return elapsed, ctxErr
	}
	return elapsed, merr.ErrorOrNil()
}
