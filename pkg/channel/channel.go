package channel

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

var (
	// ErrWouldBlock is returned by Read and Write on a non-blocking endpoint that is not ready
	ErrWouldBlock = fmt.Errorf("endpoint not ready")
	// ErrClosed is returned by any operation on a closed or detached endpoint
	ErrClosed = fmt.Errorf("endpoint closed")
)

// Endpoint is one end of a unidirectional byte channel. Its identity is the OS descriptor,
// which is what the reactor keys its interest mappings on
type Endpoint struct {
	fd     int
	name   string
	closed int32
}

// NewEndpoint wraps an existing descriptor. The endpoint takes ownership of fd
func NewEndpoint(fd int, name string) *Endpoint {
	return &Endpoint{fd: fd, name: name}
}

// Fd returns the descriptor, or -1 once the endpoint is closed
func (e *Endpoint) Fd() int {
	if !e.Valid() {
		return -1
	}
	return e.fd
}

// Valid reports whether the endpoint can still be polled
func (e *Endpoint) Valid() bool {
	return e != nil && atomic.LoadInt32(&e.closed) == 0 && e.fd >= 0
}

func (e *Endpoint) String() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(fd=%d)", e.name, e.fd)
}

// Read performs a single read(2). A zero length read on a non-empty buffer is reported as io.EOF
func (e *Endpoint) Read(p []byte) (int, error) {
	if !e.Valid() {
		return 0, ErrClosed
	}
	for {
		n, err := unix.Read(e.fd, p)
		switch err {
		case nil:
			if n == 0 && len(p) > 0 {
				return 0, io.EOF
			}
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		default:
			return 0, fmt.Errorf("read %s: %w", e, err)
		}
	}
}

// Write performs a single write(2), which may be short
func (e *Endpoint) Write(p []byte) (int, error) {
	if !e.Valid() {
		return 0, ErrClosed
	}
	for {
		n, err := unix.Write(e.fd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, ErrWouldBlock
		default:
			return 0, fmt.Errorf("write %s: %w", e, err)
		}
	}
}

// SetBlocking switches the descriptor between blocking and non-blocking mode. Reactor driven
// endpoints stay non-blocking, the goroutine variant blocks its OS thread instead
func (e *Endpoint) SetBlocking(blocking bool) error {
	if !e.Valid() {
		return ErrClosed
	}
	return unix.SetNonblock(e.fd, !blocking)
}

// Close is idempotent and may race with Read and Write on another goroutine, which then fail
func (e *Endpoint) Close() error {
	if e == nil || !atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		return nil
	}
	if err := unix.Close(e.fd); err != nil {
		return fmt.Errorf("close %s: %w", e, err)
	}
	return nil
}

// Detach transfers ownership of the descriptor to an *os.File. The endpoint is unusable afterwards
func (e *Endpoint) Detach() (*os.File, error) {
	if e == nil || !atomic.CompareAndSwapInt32(&e.closed, 0, 1) {
		return nil, ErrClosed
	}
	return os.NewFile(uintptr(e.fd), e.name), nil
}

// Pair is a pipe: bytes written to W can be read from R
type Pair struct {
	R *Endpoint
	W *Endpoint
}

// NewPair creates a non-blocking, close-on-exec pipe named after name
func NewPair(name string) (*Pair, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, fmt.Errorf("pipe %s: %w", name, err)
	}
	p := &Pair{
		R: NewEndpoint(fds[0], name+".r"),
		W: NewEndpoint(fds[1], name+".w"),
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			p.Close()
			return nil, fmt.Errorf("set nonblock %s: %w", name, err)
		}
	}
	return p, nil
}

// SetBlocking applies SetBlocking to both ends
func (p *Pair) SetBlocking(blocking bool) error {
	var merr *multierror.Error
	if err := p.R.SetBlocking(blocking); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := p.W.SetBlocking(blocking); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// Close closes both ends
func (p *Pair) Close() error {
	var merr *multierror.Error
	if err := p.R.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	if err := p.W.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// Pairs is the set of channels for a run, one inbound (master to worker) and one outbound
// (worker to master) pair per worker
type Pairs struct {
	Inbound  []*Pair
	Outbound []*Pair
}

// NewPairs creates the inbound and outbound pipes for n workers. On failure every pipe created
// so far is closed
func NewPairs(n int) (*Pairs, error) {
	ps := &Pairs{
		Inbound:  make([]*Pair, 0, n),
		Outbound: make([]*Pair, 0, n),
	}
	for i := 0; i < n; i++ {
		in, err := NewPair(fmt.Sprintf("inbound-%d", i))
		if err != nil {
			ps.Close()
			return nil, err
		}
		ps.Inbound = append(ps.Inbound, in)

		out, err := NewPair(fmt.Sprintf("outbound-%d", i))
		if err != nil {
			ps.Close()
			return nil, err
		}
		ps.Outbound = append(ps.Outbound, out)
	}
	return ps, nil
}

// Close closes every pipe in the set
func (ps *Pairs) Close() error {
	var merr *multierror.Error
	for _, p := range ps.Inbound {
		if err := p.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	for _, p := range ps.Outbound {
		if err := p.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
