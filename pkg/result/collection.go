package result

import (
	"fmt"

	"github.com/francoispqt/gojay"
)

// Config is one workers/messages combination. It is encoded as a two element array
type Config struct {
	Workers  int
	Messages int
}

func (c Config) String() string {
	return fmt.Sprintf("W:%d Msg:%d", c.Workers, c.Messages)
}

func (c Config) MarshalJSONArray(enc *gojay.Encoder) {
	enc.Int(c.Workers)
	enc.Int(c.Messages)
}

func (c Config) IsNil() bool {
	return false
}

type configDecoder struct {
	c *Config
	i int
}

func (d *configDecoder) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var v int
	if err := dec.Int(&v); err != nil {
		return err
	}
	switch d.i {
	case 0:
		d.c.Workers = v
	case 1:
		d.c.Messages = v
	default:
		return fmt.Errorf("config has more than 2 elements")
	}
	d.i++
	return nil
}

type Configs []Config

func (c Configs) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range c {
		enc.Array(v)
	}
}

func (c Configs) IsNil() bool {
	return c == nil
}

func (c *Configs) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var v Config
	if err := dec.Array(&configDecoder{c: &v}); err != nil {
		return err
	}
	*c = append(*c, v)
	return nil
}

// Strings is a list of names, e.g. benchmark variants or preambles
type Strings []string

func (s Strings) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range s {
		enc.String(v)
	}
}

func (s Strings) IsNil() bool {
	return s == nil
}

func (s *Strings) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var v string
	if err := dec.String(&v); err != nil {
		return err
	}
	*s = append(*s, v)
	return nil
}

// Summary is the collector's bookkeeping over all trials
type Summary struct {
	Successes    int
	Failures     int
	Skips        int
	NoData       int
	TotalConfigs int
}

// Balanced reports whether every trial was accounted for exactly once
func (s Summary) Balanced() bool {
	return s.TotalConfigs == s.Successes+s.Failures+s.Skips+s.NoData
}

func (s *Summary) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("successes", s.Successes)
	enc.IntKey("failures", s.Failures)
	enc.IntKey("skips", s.Skips)
	enc.IntKey("no_data", s.NoData)
	enc.IntKey("total_configs", s.TotalConfigs)
}

func (s *Summary) IsNil() bool {
	return s == nil
}

func (s *Summary) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "successes":
		return dec.Int(&s.Successes)
	case "failures":
		return dec.Int(&s.Failures)
	case "skips":
		return dec.Int(&s.Skips)
	case "no_data":
		return dec.Int(&s.NoData)
	case "total_configs":
		return dec.Int(&s.TotalConfigs)
	}
	return nil
}

func (s *Summary) NKeys() int {
	return 5
}

// Entry is one executed trial of the collector. ResultData is nil when the trial left no record
type Entry struct {
	Preamble         string
	Benchmark        string
	Workers          int
	Messages         int
	ResultStatus     bool
	WholeProcessTime float64
	ResultData       *Record
}

// Usable reports whether the entry counts towards the statistics: the trial finished, left a
// record, and that record is a success
func (e *Entry) Usable() bool {
	return e.ResultStatus && e.ResultData != nil && e.ResultData.Success
}

func (e *Entry) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("preamble", e.Preamble)
	enc.StringKey("benchmark", e.Benchmark)
	enc.IntKey("workers", e.Workers)
	enc.IntKey("messages", e.Messages)
	enc.BoolKey("result_status", e.ResultStatus)
	enc.Float64Key("whole_process_time", e.WholeProcessTime)
	enc.ObjectKeyOmitEmpty("result_data", e.ResultData)
}

func (e *Entry) IsNil() bool {
	return e == nil
}

func (e *Entry) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "preamble":
		return dec.String(&e.Preamble)
	case "benchmark":
		return dec.String(&e.Benchmark)
	case "workers":
		return dec.Int(&e.Workers)
	case "messages":
		return dec.Int(&e.Messages)
	case "result_status":
		return dec.Bool(&e.ResultStatus)
	case "whole_process_time":
		return dec.Float64(&e.WholeProcessTime)
	case "result_data":
		e.ResultData = &Record{}
		return dec.Object(e.ResultData)
	}
	return nil
}

func (e *Entry) NKeys() int {
	return 7
}

type Entries []*Entry

func (e Entries) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range e {
		enc.Object(v)
	}
}

func (e Entries) IsNil() bool {
	return e == nil
}

func (e *Entries) UnmarshalJSONArray(dec *gojay.Decoder) error {
	v := &Entry{}
	if err := dec.Object(v); err != nil {
		return err
	}
	*e = append(*e, v)
	return nil
}

// Collection is the output of a collector run
type Collection struct {
	ID         string
	GoVersion  string
	Configs    Configs
	Benchmarks Strings
	Preambles  Strings
	Summary    Summary
	Results    Entries
}

func (c *Collection) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("id", c.ID)
	enc.StringKey("go_version", c.GoVersion)
	enc.ArrayKey("configs", nonNilConfigs(c.Configs))
	enc.ArrayKey("benchmarks", nonNilStrings(c.Benchmarks))
	enc.ArrayKey("preambles", nonNilStrings(c.Preambles))
	enc.ObjectKey("summary", &c.Summary)
	results := c.Results
	if results == nil {
		results = Entries{}
	}
	enc.ArrayKey("results", results)
}

func (c *Collection) IsNil() bool {
	return c == nil
}

func (c *Collection) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "id":
		return dec.String(&c.ID)
	case "go_version":
		return dec.String(&c.GoVersion)
	case "configs":
		return dec.Array(&c.Configs)
	case "benchmarks":
		return dec.Array(&c.Benchmarks)
	case "preambles":
		return dec.Array(&c.Preambles)
	case "summary":
		return dec.Object(&c.Summary)
	case "results":
		return dec.Array(&c.Results)
	}
	return nil
}

func (c *Collection) NKeys() int {
	return 7
}

func nonNilConfigs(c Configs) Configs {
	if c == nil {
		return Configs{}
	}
	return c
}

func nonNilStrings(s Strings) Strings {
	if s == nil {
		return Strings{}
	}
	return s
}
