package reactor

import (
	"fmt"
	"time"

	"github.com/pipebench/pipebench/pkg/channel"
)

// Events is filled by a Poller. The slices hold the same endpoint pointers that were passed in
type Events struct {
	Readable []*channel.Endpoint
	Writable []*channel.Endpoint
	Invalid  []*channel.Endpoint // closed endpoints or descriptors the kernel rejected
}

func (e *Events) reset() {
	e.Readable = e.Readable[:0]
	e.Writable = e.Writable[:0]
	e.Invalid = e.Invalid[:0]
}

// Len returns the number of ready endpoints
func (e *Events) Len() int {
	return len(e.Readable) + len(e.Writable)
}

// Poller waits for readiness of a set of endpoints. The interest set is passed on every call, so a
// poller never holds on to endpoints the caller has stopped caring about.
// A negative timeout blocks until at least one endpoint is ready. An interrupted wait returns no events
// and a nil error
type Poller interface {
	Poll(readable, writable []*channel.Endpoint, timeout time.Duration, ev *Events) error
	Close() error
}

const (
	PollerPoll  = "poll"
	PollerEpoll = "epoll"
)

// NewPoller returns the poller backend with the given name. An empty name selects poll(2)
func NewPoller(name string) (Poller, error) {
	switch name {
	case "", PollerPoll:
		return NewPollPoller(), nil
	case PollerEpoll:
		return NewEpollPoller()
	}
	return nil, fmt.Errorf("unknown poller %q. supported 'poll', 'epoll'", name)
}

// timeoutMillis rounds up so a short positive timeout never turns into a busy poll
func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
