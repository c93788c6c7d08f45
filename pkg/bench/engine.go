package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pipebench/pipebench/pkg/channel"
	context2 "github.com/pipebench/pipebench/pkg/context"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/protocol"
	"github.com/pipebench/pipebench/pkg/result"
)

// Engine runs the benchmark for one configuration. Every call to Run builds its own channels and
// scheduler, so an engine can be reused and Run may be called concurrently
type Engine struct {
	config *Config
}

// NewEngine creates an engine from the default config modified by opts
func NewEngine(opts ...ConfigOption) *Engine {
	e := &Engine{
		config: NewDefaultConfig(),
	}
	for _, o := range opts {
		o(e.config)
	}
	return e
}

// Config returns the config for the engine
func (e *Engine) Config() *Config {
	return e.config
}

// run is the state shared by the variants for a single run
type run struct {
	config   *Config
	pairs    *channel.Pairs
	counters *protocol.Counters
	plan     *faultPlan
}

type variantFunc func(r *run, ctx context.Context) (time.Duration, error)

var variants = map[Variant]variantFunc{
	VariantReactor:         (*run).runReactor,
	VariantReactorSelect:   (*run).runSelect,
	VariantGoroutine:       (*run).runGoroutines,
	VariantGoroutineSelect: (*run).runGoroutineSelect,
}

// Run performs one run and always returns a record. A run that does not complete, e.g. because of
// a protocol violation or the deadline, yields a record with Success unset and a nil error. The
// error is only set when the run could not be set up, and the record then carries the reason too
func (e *Engine) Run(ctx context.Context) (*result.Record, error) {
	c := e.config
	rec := &result.Record{
		Workers:          c.Workers,
		RequestsPerBatch: c.Requests,
	}

	fail := func(err error) (*result.Record, error) {
		rec.Error = err.Error()
		if c.Workers > 0 && c.Requests >= 0 {
			pending := protocol.NewCounters(c.Workers, c.Requests)
			rec.PendingWrite, rec.PendingRead = pending.Snapshot()
		}
		return rec, err
	}

	if err := c.Validate(); err != nil {
		return fail(err)
	}
	plan, err := newFaultPlan(c.Faults)
	if err != nil {
		return fail(err)
	}
	pairs, err := channel.NewPairs(c.Workers)
	if err != nil {
		return fail(fmt.Errorf("failed to create channels: %w", err))
	}
	defer pairs.Close()

	r := &run{
		config:   c,
		pairs:    pairs,
		counters: protocol.NewCounters(c.Workers, c.Requests),
		plan:     plan,
	}

	ctx, cancel := context2.WithOptionalTimeout(ctx, c.Timeout)
	defer cancel()

	log.Debug().
		Str("variant", string(c.Variant)).
		Int("workers", c.Workers).
		Int("requests", c.Requests).
		Str("poller", c.Poller).
		Dur("timeout", c.Timeout).
		Int("faults", len(c.Faults)).
		Msg("starting run")

	elapsed, runErr := variants[c.Variant](r, ctx)

	rec.Time = elapsed.Seconds()
	pw, pr := r.counters.Snapshot()
	rec.PendingWrite, rec.PendingRead = pw, pr
	rec.Success = runErr == nil && r.counters.Complete()
	// aggregated errors do not unwrap, the context knows whether the deadline fired
	rec.Timeout = runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)

	failures := r.counters.Failures()
	switch {
	case runErr != nil:
		rec.Error = runErr.Error()
		log.Warn().Err(runErr).Str("variant", string(c.Variant)).Msg("run did not complete")
		errors2.PrintError(runErr, 1)
	case len(failures) > 0:
		rec.Error = fmt.Sprintf("%d failed cycles, first: %v", len(failures), failures[0])
	}

	log.Debug().
		Str("variant", string(c.Variant)).
		Bool("success", rec.Success).
		Float64("time", rec.Time).
		Int("pending", rec.Pending()).
		Msg("run finished")
	return rec, nil
}

// Run creates an engine from opts and performs a single run
func Run(ctx context.Context, opts ...ConfigOption) (*result.Record, error) {
	return NewEngine(opts...).Run(ctx)
}
