package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/pipebench/pipebench/pkg/reactor"
)

// Variant selects the concurrency primitive driving the workers and masters
type Variant string

const (
	// VariantReactor runs every worker and one master sub-task per worker on a single reactor
	VariantReactor Variant = "reactor"
	// VariantReactorSelect runs the workers on a reactor and the master as a separate readiness
	// loop over all master endpoints
	VariantReactorSelect Variant = "reactor-select"
	// VariantGoroutine runs a goroutine per worker and per master with blocking reads and writes
	VariantGoroutine Variant = "goroutine"
	// VariantGoroutineSelect runs a goroutine per worker with blocking reads and writes and the
	// master as a single readiness loop over all master endpoints
	VariantGoroutineSelect Variant = "goroutine-select"
)

// Variants lists every supported variant
var Variants = []Variant{VariantReactor, VariantReactorSelect, VariantGoroutine, VariantGoroutineSelect}

// ParseVariant returns the variant with the given name
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown variant %q. supported %v", s, Variants)
}

type Config struct {
	Workers  int           `toml:"workers" json:"workers" mapstructure:"workers"`
	Requests int           `toml:"requests" json:"requests" mapstructure:"requests"`
	Variant  Variant       `toml:"variant" json:"variant" mapstructure:"variant"`
	Timeout  time.Duration `toml:"timeout" json:"timeout" mapstructure:"timeout"`
	Poller   string        `toml:"poller" json:"poller" mapstructure:"poller"`
	Faults   []Fault
}

func NewDefaultConfig() *Config {
	return &Config{
		Workers:  10,
		Requests: 1000,
		Variant:  VariantReactor,
		Poller:   reactor.PollerPoll,
	}
}

type ErrBadConfig struct {
	fields []string
}

func (e *ErrBadConfig) Error() string {
	return fmt.Sprintf("config has invalid values in: %v", strings.Join(e.fields, ", "))
}

// Fields returns the names of the invalid fields
func (e *ErrBadConfig) Fields() []string {
	return e.fields
}

func (c *Config) Validate() error {
	badFields := make([]string, 0)
	if c.Workers < 1 {
		badFields = append(badFields, "Workers")
	}
	if c.Requests < 1 {
		badFields = append(badFields, "Requests")
	}
	if _, err := ParseVariant(string(c.Variant)); err != nil {
		badFields = append(badFields, "Variant")
	}
	switch c.Poller {
	case "", reactor.PollerPoll, reactor.PollerEpoll:
	default:
		badFields = append(badFields, "Poller")
	}
	if c.Timeout < 0 {
		badFields = append(badFields, "Timeout")
	}

	stalls := false
	for _, f := range c.Faults {
		if f.Worker < 0 || f.Worker >= c.Workers || f.Cycle < 0 || f.Cycle >= c.Requests || !f.Kind.valid() {
			badFields = append(badFields, "Faults")
			break
		}
		if f.Kind == StallWorker {
			stalls = true
		}
	}
	// a stalled worker never lets the run finish on its own
	if stalls && c.Timeout == 0 {
		badFields = append(badFields, "Timeout")
	}

	if len(badFields) != 0 {
		return &ErrBadConfig{fields: badFields}
	}
	return nil
}

type ConfigOption func(*Config)

func Workers(n int) ConfigOption {
	return func(c *Config) {
		c.Workers = n
	}
}

func Requests(n int) ConfigOption {
	return func(c *Config) {
		c.Requests = n
	}
}

func WithVariant(v Variant) ConfigOption {
	return func(c *Config) {
		c.Variant = v
	}
}

// Timeout sets a deadline for the working phase. Zero waits forever
func Timeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// UsePoller selects the readiness backend by name, see reactor.NewPoller
func UsePoller(name string) ConfigOption {
	return func(c *Config) {
		c.Poller = name
	}
}

// InjectFault makes the exchange of worker on the given zero based cycle misbehave
func InjectFault(worker, cycle int, kind FaultKind) ConfigOption {
	return func(c *Config) {
		c.Faults = append(c.Faults, Fault{Worker: worker, Cycle: cycle, Kind: kind})
	}
}
