package collect

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/segmentio/ksuid"
	"github.com/valyala/fasttemplate"
)

// Trial is a single benchmark execution planned by the collector
type Trial struct {
	Preamble  int
	Benchmark bench.Variant
	Config    result.Config
}

// PreambleName is how the preamble appears in the collection
func (t Trial) PreambleName() string {
	return PreambleName(t.Preamble)
}

func (t Trial) String() string {
	return fmt.Sprintf("%s %s %s", t.PreambleName(), t.Benchmark, t.Config)
}

func PreambleName(procs int) string {
	if procs == 0 {
		return "GOMAXPROCS=default"
	}
	return "GOMAXPROCS=" + strconv.Itoa(procs)
}

type Collector struct {
	opts    *Options
	id      string
	started time.Time
	rng     *rand.Rand
	pb      ProgressBar
}

func New(opts ...Option) (*Collector, error) {
	o := NewDefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.Preflight == nil {
		o.Preflight = RunAll
	}

	now := time.Now()
	seed := now.UnixNano()
	if o.seedOverride {
		seed = o.Seed
	}
	return &Collector{
		opts:    o,
		id:      ksuid.New().String(),
		started: now,
		rng:     rand.New(rand.NewSource(seed)),
		pb:      &NullProgressBar{},
	}, nil
}

func (c *Collector) ID() string {
	return c.id
}

func (c *Collector) Options() *Options {
	return c.opts
}

// OutputFilename expands the output template
func (c *Collector) OutputFilename() string {
	return fasttemplate.ExecuteString(c.opts.Output, "{", "}", map[string]interface{}{
		"ts": strconv.FormatInt(c.started.Unix(), 10),
		"id": c.id,
	})
}

// Trials returns every trial in the order it will run: the cross product of preambles,
// benchmarks and configs, repeated per trial count and shuffled
func (c *Collector) Trials() []Trial {
	o := c.opts
	ret := make([]Trial, 0, o.Trials*len(o.Preambles)*len(o.Benchmarks)*len(o.Configs))
	for i := 0; i < o.Trials; i++ {
		for _, p := range o.Preambles {
			for _, b := range o.Benchmarks {
				for _, cfg := range o.Configs {
					ret = append(ret, Trial{Preamble: p, Benchmark: b, Config: cfg})
				}
			}
		}
	}
	c.rng.Shuffle(len(ret), func(i, j int) {
		ret[i], ret[j] = ret[j], ret[i]
	})
	return ret
}

func (c *Collector) newCollection(total int) *result.Collection {
	o := c.opts
	coll := &result.Collection{
		ID:        c.id,
		GoVersion: runtime.Version(),
		Configs:   append(result.Configs{}, o.Configs...),
		Summary:   result.Summary{TotalConfigs: total},
		Results:   make(result.Entries, 0, total),
	}
	for _, b := range o.Benchmarks {
		coll.Benchmarks = append(coll.Benchmarks, string(b))
	}
	for _, p := range o.Preambles {
		coll.Preambles = append(coll.Preambles, PreambleName(p))
	}
	return coll
}

func (c *Collector) progress(trials []Trial) ProgressBar {
	if !c.opts.ProgressBar {
		return &NullProgressBar{}
	}
	order := make([]string, 0, len(c.opts.Benchmarks))
	totals := make(map[string]int64)
	for _, t := range trials {
		name := string(t.Benchmark)
		if _, ok := totals[name]; !ok {
			order = append(order, name)
		}
		totals[name]++
	}
	return NewProgress(order, totals)
}

// Run executes every trial. Trials left over when ctx is cancelled are counted as skips so the
// summary still balances
func (c *Collector) Run(ctx context.Context) (*result.Collection, error) {
	trials := c.Trials()
	coll := c.newCollection(len(trials))

	c.pb = c.progress(trials)
	defer c.pb.Finish()

	log.Info().
		Str("id", c.id).
		Int("trials", len(trials)).
		Strs("benchmarks", coll.Benchmarks).
		Strs("preambles", coll.Preambles).
		Msg("starting collection")

	for i, t := range trials {
		select {
		case <-ctx.Done():
			left := len(trials) - i
			coll.Summary.Skips += left
			log.Warn().Int("remaining", left).Msg("collection interrupted")
			return c.finish(coll), nil
		default:
		}

		if !c.opts.Preflight(t) {
			log.Info().Str("trial", t.String()).Msg("skipping trial")
			coll.Summary.Skips++
			c.pb.Incr(string(t.Benchmark), 1)
			continue
		}

		e := c.runTrial(ctx, t)
		coll.Results = append(coll.Results, e)
		switch {
		case !e.ResultStatus:
			coll.Summary.Failures++
		case e.ResultData == nil:
			coll.Summary.NoData++
		default:
			coll.Summary.Successes++
		}
		c.pb.Incr(string(t.Benchmark), 1)
	}
	return c.finish(coll), nil
}

func (c *Collector) finish(coll *result.Collection) *result.Collection {
	s := coll.Summary
	ev := log.Info()
	if !s.Balanced() {
		ev = log.Error()
	}
	ev.Int("successes", s.Successes).
		Int("failures", s.Failures).
		Int("skips", s.Skips).
		Int("no_data", s.NoData).
		Int("total", s.TotalConfigs).
		Dur("duration", time.Since(c.started)).
		Msg("collection complete")
	return coll
}

// runTrial runs one benchmark under its preamble. The record makes a round trip through a scratch
// file so the stored data is exactly what the collection reports
func (c *Collector) runTrial(ctx context.Context, t Trial) *result.Entry {
	e := &result.Entry{
		Preamble:  t.PreambleName(),
		Benchmark: string(t.Benchmark),
		Workers:   t.Config.Workers,
		Messages:  t.Config.Messages,
	}

	if t.Preamble > 0 {
		prev := runtime.GOMAXPROCS(t.Preamble)
		defer runtime.GOMAXPROCS(prev)
	}

	scratch := filepath.Join(c.opts.ScratchDir, fmt.Sprintf("pipebench_%s_%s.json", c.id, uuid.New()))
	defer os.Remove(scratch)

	start := time.Now()
	rec, err := bench.Run(ctx,
		bench.WithVariant(t.Benchmark),
		bench.Workers(t.Config.Workers),
		bench.Requests(t.Config.Messages),
		bench.Timeout(c.opts.Timeout),
		bench.UsePoller(c.opts.Poller),
	)
	if err == nil {
		err = result.WriteFile(scratch, rec)
	}
	e.WholeProcessTime = time.Since(start).Seconds()
	e.ResultStatus = err == nil && rec.Success

	data, rerr := result.ReadRecordFile(scratch)
	if rerr == nil {
		e.ResultData = data
	}

	log.Debug().
		Str("trial", t.String()).
		Bool("status", e.ResultStatus).
		Bool("data", e.ResultData != nil).
		Float64("whole_process_time", e.WholeProcessTime).
		AnErr("error", err).
		Msg("trial finished")
	return e
}

// Collect runs a collector built from opts and writes the collection to its output file
func Collect(ctx context.Context, opts ...Option) (*result.Collection, string, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, "", err
	}
	coll, err := c.Run(ctx)
	if err != nil {
		return coll, "", err
	}
	out := c.OutputFilename()
	if err := result.WriteFile(out, coll); err != nil {
		return coll, out, err
	}
	log.Info().Str("file", out).Msg("wrote collection")
	return coll, out, nil
}
