//go:build linux
// +build linux

package reactor

import (
	"fmt"
	"time"

	"github.com/pipebench/pipebench/pkg/channel"
	"golang.org/x/sys/unix"
)

type epollRegistration struct {
	ep     *channel.Endpoint
	events uint32
}

// epollPoller keeps a level-triggered epoll set and reconciles it with the requested interest
// before every wait, so only the delta costs an epoll_ctl
type epollPoller struct {
	epfd       int
	registered map[int]epollRegistration
	want       map[int]epollRegistration
	events     []unix.EpollEvent
}

// NewEpollPoller creates an epoll(7) backed Poller
func NewEpollPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollPoller{
		epfd:       epfd,
		registered: make(map[int]epollRegistration),
		want:       make(map[int]epollRegistration),
	}, nil
}

func (p *epollPoller) Poll(readable, writable []*channel.Endpoint, timeout time.Duration, ev *Events) error {
	ev.reset()
	for fd := range p.want {
		delete(p.want, fd)
	}

	p.collect(readable, unix.EPOLLIN, ev)
	p.collect(writable, unix.EPOLLOUT, ev)
	if len(ev.Invalid) > 0 {
		return nil
	}
	if err := p.reconcile(ev); err != nil {
		return err
	}
	if len(ev.Invalid) > 0 {
		return nil
	}

	size := len(p.want)
	if size == 0 {
		size = 1
	}
	if len(p.events) < size {
		p.events = make([]unix.EpollEvent, size)
	}
	buf := p.events[:size]

	n, err := unix.EpollWait(p.epfd, buf, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("epoll wait: %w", err)
	}

	for i := 0; i < n; i++ {
		w, ok := p.want[int(buf[i].Fd)]
		if !ok {
			continue
		}
		got := buf[i].Events
		if w.events&unix.EPOLLIN != 0 && got&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ev.Readable = append(ev.Readable, w.ep)
		}
		if w.events&unix.EPOLLOUT != 0 && got&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ev.Writable = append(ev.Writable, w.ep)
		}
	}
	return nil
}

func (p *epollPoller) collect(eps []*channel.Endpoint, events uint32, ev *Events) {
	for _, ep := range eps {
		if !ep.Valid() {
			ev.Invalid = append(ev.Invalid, ep)
			continue
		}
		fd := ep.Fd()
		w := p.want[fd]
		w.ep = ep
		w.events |= events
		p.want[fd] = w
	}
}

func (p *epollPoller) reconcile(ev *Events) error {
	for fd, reg := range p.registered {
		if w, ok := p.want[fd]; ok && w.ep == reg.ep {
			continue
		}
		// a closed descriptor has already left the set, EBADF and ENOENT are expected here
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		delete(p.registered, fd)
	}

	for fd, w := range p.want {
		reg, ok := p.registered[fd]
		if ok && reg.events == w.events {
			continue
		}
		op := unix.EPOLL_CTL_ADD
		if ok {
			op = unix.EPOLL_CTL_MOD
		}
		e := unix.EpollEvent{Events: w.events, Fd: int32(fd)}
		if err := unix.EpollCtl(p.epfd, op, fd, &e); err != nil {
			if err == unix.EBADF || err == unix.EPERM {
				ev.Invalid = append(ev.Invalid, w.ep)
				continue
			}
			return fmt.Errorf("epoll ctl %d: %w", fd, err)
		}
		p.registered[fd] = w
	}
	return nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
