package bench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pipebench/pipebench/pkg/protocol"
)

type FaultKind int

const (
	// CorruptResponse makes the worker answer with a different payload of the same length
	CorruptResponse FaultKind = iota + 1
	// CorruptQuery makes the master send a different payload of the same length
	CorruptQuery
	// StallWorker makes the worker stop answering from the cycle on
	StallWorker
)

func (k FaultKind) valid() bool {
	return k >= CorruptResponse && k <= StallWorker
}

func (k FaultKind) String() string {
	switch k {
	case CorruptResponse:
		return "corrupt-response"
	case CorruptQuery:
		return "corrupt-query"
	case StallWorker:
		return "stall-worker"
	}
	return fmt.Sprintf("fault(%d)", int(k))
}

// ParseFaultKind returns the fault kind for its String form
func ParseFaultKind(s string) (FaultKind, error) {
	for _, k := range []FaultKind{CorruptResponse, CorruptQuery, StallWorker} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown fault %q. supported 'corrupt-response', 'corrupt-query', 'stall-worker'", s)
}

type Fault struct {
	Worker int
	Cycle  int
	Kind   FaultKind
}

func (f Fault) String() string {
	return fmt.Sprintf("%s worker %d cycle %d", f.Kind, f.Worker, f.Cycle)
}

// ParseFault parses the worker:cycle:kind form used on the command line, e.g. 1:3:stall-worker
func ParseFault(s string) (Fault, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Fault{}, fmt.Errorf("invalid fault %q, expected worker:cycle:kind", s)
	}
	worker, err := strconv.Atoi(parts[0])
	if err != nil {
		return Fault{}, fmt.Errorf("invalid fault worker %q: %w", parts[0], err)
	}
	cycle, err := strconv.Atoi(parts[1])
	if err != nil {
		return Fault{}, fmt.Errorf("invalid fault cycle %q: %w", parts[1], err)
	}
	kind, err := ParseFaultKind(parts[2])
	if err != nil {
		return Fault{}, err
	}
	return Fault{Worker: worker, Cycle: cycle, Kind: kind}, nil
}

// faultPlan is the per worker view of the configured faults with the corrupt payloads generated
// ahead of the working phase
type faultPlan struct {
	responses map[int]map[int][]byte
	queries   map[int]map[int][]byte
	stalls    map[int]int
}

func newFaultPlan(faults []Fault) (*faultPlan, error) {
	p := &faultPlan{
		responses: make(map[int]map[int][]byte),
		queries:   make(map[int]map[int][]byte),
		stalls:    make(map[int]int),
	}
	for _, f := range faults {
		switch f.Kind {
		case CorruptResponse:
			b, err := protocol.Corrupt(protocol.Response)
			if err != nil {
				return nil, err
			}
			addPayload(p.responses, f.Worker, f.Cycle, b)
		case CorruptQuery:
			b, err := protocol.Corrupt(protocol.Query)
			if err != nil {
				return nil, err
			}
			addPayload(p.queries, f.Worker, f.Cycle, b)
		case StallWorker:
			if c, ok := p.stalls[f.Worker]; !ok || f.Cycle < c {
				p.stalls[f.Worker] = f.Cycle
			}
		}
	}
	return p, nil
}

func addPayload(m map[int]map[int][]byte, worker, cycle int, b []byte) {
	if m[worker] == nil {
		m[worker] = make(map[int][]byte)
	}
	m[worker][cycle] = b
}

func (p *faultPlan) response(worker int) protocol.Payload {
	cycles, ok := p.responses[worker]
	if !ok {
		return nil
	}
	return func(cycle int) []byte { return cycles[cycle] }
}

func (p *faultPlan) query(worker int) protocol.Payload {
	cycles, ok := p.queries[worker]
	if !ok {
		return nil
	}
	return func(cycle int) []byte { return cycles[cycle] }
}

func (p *faultPlan) stall(worker int) func(int) bool {
	from, ok := p.stalls[worker]
	if !ok {
		return nil
	}
	return func(cycle int) bool { return cycle >= from }
}

// worker builds the protocol worker for index i
func (p *faultPlan) worker(i, requests int) *protocol.Worker {
	return &protocol.Worker{
		Index:    i,
		Requests: requests,
		Respond:  p.response(i),
		Stall:    p.stall(i),
	}
}

// master builds the protocol master for index i
func (p *faultPlan) master(i, requests int, c *protocol.Counters) *protocol.Master {
	return &protocol.Master{
		Index:    i,
		Requests: requests,
		Counters: c,
		Query:    p.query(i),
	}
}
