package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/pipebench/pipebench/pkg/protocol"
	"github.com/pipebench/pipebench/pkg/reactor"
)

func (r *run) newReactor() (*reactor.Reactor, error) {
	p, err := reactor.NewPoller(r.config.Poller)
	if err != nil {
		return nil, err
	}
	re, err := reactor.New(reactor.WithPoller(p))
	if err != nil {
		p.Close()
		return nil, err
	}
	return re, nil
}

// runReactor runs every worker and a master with one sub-task per worker on a single reactor
func (r *run) runReactor(ctx context.Context) (time.Duration, error) {
	re, err := r.newReactor()
	if err != nil {
		return 0, err
	}
	defer re.Close()

	t0 := time.Now()
	if err := r.spawnWorkers(re); err != nil {
		return time.Since(t0), err
	}
	_, err = re.Spawn("master", func(t *reactor.Task) error {
		for i := 0; i < r.config.Workers; i++ {
			if _, err := t.Reactor().Spawn(fmt.Sprintf("master-%d", i), r.masterTask(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return time.Since(t0), err
	}

	err = re.Run(ctx)
	return time.Since(t0), err
}

func (r *run) spawnWorkers(re *reactor.Reactor) error {
	for i := 0; i < r.config.Workers; i++ {
		if _, err := re.Spawn(fmt.Sprintf("worker-%d", i), r.workerTask(i)); err != nil {
			return err
		}
	}
	return nil
}

// workerTask closes the worker's ends when it returns so its master sees end of stream instead of
// waiting forever on a worker that gave up
func (r *run) workerTask(i int) reactor.TaskFunc {
	in, out := r.pairs.Inbound[i].R, r.pairs.Outbound[i].W
	return func(t *reactor.Task) error {
		defer in.Close()
		defer out.Close()

		w := r.plan.worker(i, r.config.Requests)
		w.In = protocol.NewReader(t, in)
		w.Out = protocol.NewWriter(t, out)
		return w.Run()
	}
}

func (r *run) masterTask(i int) reactor.TaskFunc {
	out, in := r.pairs.Inbound[i].W, r.pairs.Outbound[i].R
	return func(t *reactor.Task) error {
		defer out.Close()
		defer in.Close()

		m := r.plan.master(i, r.config.Requests, r.counters)
		m.Out = protocol.NewWriter(t, out)
		m.In = protocol.NewReader(t, in)
		return m.Run()
	}
}
