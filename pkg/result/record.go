package result

import (
	"github.com/francoispqt/gojay"
)

// Counts is a list of per worker counters, always encoded as an array even when empty
type Counts []int

func (c Counts) MarshalJSONArray(enc *gojay.Encoder) {
	for _, v := range c {
		enc.Int(v)
	}
}

func (c Counts) IsNil() bool {
	return c == nil
}

func (c *Counts) UnmarshalJSONArray(dec *gojay.Decoder) error {
	var v int
	if err := dec.Int(&v); err != nil {
		return err
	}
	*c = append(*c, v)
	return nil
}

// Sum returns the total of all counters
func (c Counts) Sum() int {
	ret := 0
	for _, v := range c {
		ret += v
	}
	return ret
}

// Record is the result of a single benchmark run. It is produced once the run is over and never
// modified afterwards
type Record struct {
	Workers          int
	RequestsPerBatch int
	// Time is the elapsed wall clock of the working phase in seconds
	Time         float64
	Success      bool
	PendingWrite Counts
	PendingRead  Counts

	// Timeout is set when the run was aborted by its deadline
	Timeout bool
	// Error describes why an unsuccessful run stopped, when there is more to say than the counters
	Error string
}

// Pending returns the number of exchanges that did not complete
func (r *Record) Pending() int {
	return r.PendingWrite.Sum() + r.PendingRead.Sum()
}

func (r *Record) MarshalJSONObject(enc *gojay.Encoder) {
	enc.IntKey("workers", r.Workers)
	enc.IntKey("requests_per_batch", r.RequestsPerBatch)
	enc.Float64Key("time", r.Time)
	enc.BoolKey("success", r.Success)
	pw, pr := r.PendingWrite, r.PendingRead
	if pw == nil {
		pw = Counts{}
	}
	if pr == nil {
		pr = Counts{}
	}
	enc.ArrayKey("pending_write", pw)
	enc.ArrayKey("pending_read", pr)
	enc.BoolKeyOmitEmpty("timeout", r.Timeout)
	enc.StringKeyOmitEmpty("error", r.Error)
}

func (r *Record) IsNil() bool {
	return r == nil
}

func (r *Record) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "workers":
		return dec.Int(&r.Workers)
	case "requests_per_batch":
		return dec.Int(&r.RequestsPerBatch)
	case "time":
		return dec.Float64(&r.Time)
	case "success":
		return dec.Bool(&r.Success)
	case "pending_write":
		r.PendingWrite = Counts{}
		return dec.Array(&r.PendingWrite)
	case "pending_read":
		r.PendingRead = Counts{}
		return dec.Array(&r.PendingRead)
	case "timeout":
		return dec.Bool(&r.Timeout)
	case "error":
		return dec.String(&r.Error)
	}
	return nil
}

func (r *Record) NKeys() int {
	return 0
}
