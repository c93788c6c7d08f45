package collect

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pipebench/pipebench/pkg/bench"
	"github.com/pipebench/pipebench/pkg/convert"
	"github.com/pipebench/pipebench/pkg/result"
)

const (
	// DefaultOutput is the output file template. {ts} is the unix time the collector started and
	// {id} its collection id
	DefaultOutput  = "collector_data_{ts}.json"
	DefaultTrials  = 1
	DefaultTimeout = 5 * time.Minute
)

// DefaultConfigs trade worker count against batch size: small batches stress worker startup and
// shutdown, large batches the cost of handing off a message
var DefaultConfigs = []result.Config{
	{Workers: 10, Messages: 1000},
	{Workers: 100, Messages: 100},
	{Workers: 1000, Messages: 10},
}

// PreflightFunc decides whether a trial should run. Trials it rejects are counted as skips
type PreflightFunc func(t Trial) bool

type Options struct {
	Trials     int
	Configs    []result.Config
	Benchmarks []bench.Variant
	// Preambles are GOMAXPROCS values applied around each trial. 0 keeps the current setting
	Preambles    []int
	Timeout      time.Duration
	Poller       string
	Output       string
	ScratchDir   string
	Preflight    PreflightFunc
	ProgressBar  bool
	Seed         int64
	seedOverride bool
}

func NewDefaultOptions() *Options {
	return &Options{
		Trials:     DefaultTrials,
		Configs:    append([]result.Config{}, DefaultConfigs...),
		Benchmarks: append([]bench.Variant{}, bench.Variants...),
		Preambles:  defaultPreambles(),
		Timeout:    DefaultTimeout,
		Output:     DefaultOutput,
		ScratchDir: os.TempDir(),
		Preflight:  DescriptorPreflight,
	}
}

func defaultPreambles() []int {
	if n := runtime.NumCPU(); n > 1 {
		return []int{1, n}
	}
	return []int{1}
}

func (o *Options) validate() error {
	if o.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", o.Trials)
	}
	if len(o.Configs) == 0 {
		return fmt.Errorf("no worker configs")
	}
	for _, c := range o.Configs {
		if c.Workers < 1 || c.Messages < 1 {
			return fmt.Errorf("invalid worker config %s", c)
		}
	}
	if len(o.Benchmarks) == 0 {
		return fmt.Errorf("no benchmarks")
	}
	for _, b := range o.Benchmarks {
		if _, err := bench.ParseVariant(string(b)); err != nil {
			return err
		}
	}
	if len(o.Preambles) == 0 {
		return fmt.Errorf("no preambles")
	}
	for _, p := range o.Preambles {
		if p < 0 {
			return fmt.Errorf("invalid GOMAXPROCS preamble %d", p)
		}
	}
	return nil
}

type Option func(o *Options) error

func Trials(n int) Option {
	return func(o *Options) error {
		o.Trials = n
		return nil
	}
}

// Configs replaces the worker configs
func Configs(c ...result.Config) Option {
	return func(o *Options) error {
		o.Configs = append(o.Configs[:0], c...)
		return nil
	}
}

// Benchmarks replaces the variants to run, given by name. Repeated names run once
func Benchmarks(names ...string) Option {
	return func(o *Options) error {
		o.Benchmarks = o.Benchmarks[:0]
		for _, n := range convert.UniqueStrings(names) {
			v, err := bench.ParseVariant(n)
			if err != nil {
				return err
			}
			o.Benchmarks = append(o.Benchmarks, v)
		}
		return nil
	}
}

// Preambles replaces the GOMAXPROCS values. Repeated values run once
func Preambles(procs ...int) Option {
	return func(o *Options) error {
		o.Preambles = append(o.Preambles[:0], convert.UniqueInts(procs)...)
		return nil
	}
}

// Timeout is the deadline of each trial
func Timeout(d time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = d
		return nil
	}
}

func Poller(name string) Option {
	return func(o *Options) error {
		o.Poller = name
		return nil
	}
}

// Output sets the output file template
func Output(tpl string) Option {
	return func(o *Options) error {
		o.Output = tpl
		return nil
	}
}

// ScratchDir is where each trial writes its record before it is read back
func ScratchDir(dir string) Option {
	return func(o *Options) error {
		o.ScratchDir = dir
		return nil
	}
}

func Preflight(f PreflightFunc) Option {
	return func(o *Options) error {
		o.Preflight = f
		return nil
	}
}

func ShowProgress(enabled bool) Option {
	return func(o *Options) error {
		o.ProgressBar = enabled
		return nil
	}
}

// Seed fixes the shuffle order of the trials
func Seed(seed int64) Option {
	return func(o *Options) error {
		o.Seed = seed
		o.seedOverride = true
		return nil
	}
}
