package stats

import (
	"fmt"
	"sort"

	"github.com/pipebench/pipebench/pkg/result"
)

// Key identifies one configuration of a collection
type Key struct {
	Preamble  string
	Benchmark string
	Workers   int
	Messages  int
}

func (k Key) String() string {
	return fmt.Sprintf("Pre: %q Bench: %q W: %d Msg: %d", k.Preamble, k.Benchmark, k.Workers, k.Messages)
}

func (k Key) less(o Key) bool {
	if k.Preamble != o.Preamble {
		return k.Preamble < o.Preamble
	}
	if k.Benchmark != o.Benchmark {
		return k.Benchmark < o.Benchmark
	}
	if k.Workers != o.Workers {
		return k.Workers < o.Workers
	}
	return k.Messages < o.Messages
}

// Group is the statistics of every trial of one configuration. Trials that failed or left no
// record are counted in Trials but excluded from the summaries
type Group struct {
	Key
	Trials       int
	Working      Summary
	WholeProcess Summary
}

// HasData reports whether at least one trial was usable
func (g *Group) HasData() bool {
	return g.Working.N > 0
}

// Analyze groups the results of c by configuration, ordered by preamble, benchmark, workers
// and messages
func Analyze(c *result.Collection) []*Group {
	type samples struct {
		trials       int
		working      []float64
		wholeProcess []float64
	}

	byKey := make(map[Key]*samples)
	for _, e := range c.Results {
		k := Key{Preamble: e.Preamble, Benchmark: e.Benchmark, Workers: e.Workers, Messages: e.Messages}
		s, ok := byKey[k]
		if !ok {
			s = &samples{}
			byKey[k] = s
		}
		s.trials++
		if !e.Usable() {
			continue
		}
		s.working = append(s.working, e.ResultData.Time)
		s.wholeProcess = append(s.wholeProcess, e.WholeProcessTime)
	}

	ret := make([]*Group, 0, len(byKey))
	for k, s := range byKey {
		ret = append(ret, &Group{
			Key:          k,
			Trials:       s.trials,
			Working:      Summarize(s.working),
			WholeProcess: Summarize(s.wholeProcess),
		})
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Key.less(ret[j].Key)
	})
	return ret
}
