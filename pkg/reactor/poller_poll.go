package reactor

import (
	"fmt"
	"time"

	"github.com/pipebench/pipebench/pkg/channel"
	"golang.org/x/sys/unix"
)

// pollPoller rebuilds the pollfd set from the current interest on every call, the same shape
// as a select(2) loop over the key sets
type pollPoller struct {
	fds []unix.PollFd
	eps []*channel.Endpoint
}

// NewPollPoller returns a poll(2) backed Poller. It holds no kernel resources
func NewPollPoller() Poller {
	return &pollPoller{}
}

func (p *pollPoller) Poll(readable, writable []*channel.Endpoint, timeout time.Duration, ev *Events) error {
	ev.reset()
	p.fds = p.fds[:0]
	p.eps = p.eps[:0]

	for _, ep := range readable {
		if !ep.Valid() {
			ev.Invalid = append(ev.Invalid, ep)
			continue
		}
		p.fds = append(p.fds, unix.PollFd{Fd: int32(ep.Fd()), Events: unix.POLLIN})
		p.eps = append(p.eps, ep)
	}
	nr := len(p.fds)
	for _, ep := range writable {
		if !ep.Valid() {
			ev.Invalid = append(ev.Invalid, ep)
			continue
		}
		p.fds = append(p.fds, unix.PollFd{Fd: int32(ep.Fd()), Events: unix.POLLOUT})
		p.eps = append(p.eps, ep)
	}
	if len(ev.Invalid) > 0 {
		return nil
	}

	n, err := unix.Poll(p.fds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil
	}

	for i := range p.fds {
		re := p.fds[i].Revents
		if re == 0 {
			continue
		}
		if re&unix.POLLNVAL != 0 {
			ev.Invalid = append(ev.Invalid, p.eps[i])
			continue
		}
		// hangup and error count as ready: the following read or write reports the condition
		if i < nr {
			if re&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
				ev.Readable = append(ev.Readable, p.eps[i])
			}
		} else if re&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR) != 0 {
			ev.Writable = append(ev.Writable, p.eps[i])
		}
	}
	return nil
}

func (p *pollPoller) Close() error {
	return nil
}
