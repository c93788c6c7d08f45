package bench

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// runGoroutineSelect runs every worker in its own goroutine with blocking reads and writes on
// *os.File ends while a single master multiplexes all master endpoints in one readiness loop
func (r *run) runGoroutineSelect(ctx context.Context) (time.Duration, error) {
	n := r.config.Workers
	in, out := make([]*os.File, n), make([]*os.File, n)
	closeAll := func() {
		for i := 0; i < n; i++ {
			if in[i] != nil {
				in[i].Close()
			}
			if out[i] != nil {
				out[i].Close()
			}
		}
	}
	for i := 0; i < n; i++ {
		var err error
		if in[i], err = r.pairs.Inbound[i].R.Detach(); err != nil {
			closeAll()
			return 0, err
		}
		if out[i], err = r.pairs.Outbound[i].W.Detach(); err != nil {
			closeAll()
			return 0, err
		}
	}

	start := func(ctx context.Context) <-chan error {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			merr *multierror.Error
		)
		for i := 0; i < n; i++ {
			w := r.plan.worker(i, r.config.Requests)
			w.In, w.Out = in[i], out[i]
			fIn, fOut := in[i], out[i]

			wg.Add(1)
			go func() {
				defer wg.Done()
				// closing our ends lets the master see end of stream when we give up
				defer fIn.Close()
				defer fOut.Close()
				if err := w.Run(); err != nil {
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

		done := make(chan error, 1)
		go func() {
			select {
			case <-finished:
				done <- merr.ErrorOrNil()
			case <-ctx.Done():
				past := time.Now()
				for i := 0; i < n; i++ {
					_ = in[i].SetDeadline(past)
					_ = out[i].SetDeadline(past)
				}
				<-finished
				done <- fmt.Errorf("workers interrupted: %w", ctx.Err())
			}
		}()
		return done
	}
	return r.selectMaster(ctx, start, closeAll)
}
