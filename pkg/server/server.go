package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/pipebench/pipebench/pkg/channel"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/protocol"
	"github.com/pipebench/pipebench/pkg/reactor"
	"golang.org/x/sys/unix"
)

var (
	// ErrServing is returned when Serve is called a second time
	ErrServing = fmt.Errorf("server already served")
)

// Option configures a Server
type Option func(*Server)

// UsePoller selects the readiness backend of the server's reactor. See reactor.NewPoller
func UsePoller(name string) Option {
	return func(s *Server) {
		s.poller = name
	}
}

// Stats are the connection counters of a server. They may be read while the server runs
type Stats struct {
	Accepted int64
	Served   int64
	Failed   int64
}

// Server answers every STATUS read from a connection with OK until the client hangs up
type Server struct {
	poller  string
	addr    net.Addr
	ln      *channel.Endpoint
	started int32

	accepted int64
	served   int64
	failed   int64
}

// Listen binds addr and returns a server that has not started accepting yet
func Listen(addr string, opts ...Option) (*Server, error) {
	s := &Server{
		poller: reactor.PollerPoll,
	}
	for _, o := range opts {
		o(s)
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	s.addr = l.Addr()

	// the reactor polls raw descriptors, so take our own copy of the socket away from the runtime
	f, err := l.(*net.TCPListener).File()
	if err != nil {
		return nil, fmt.Errorf("listener descriptor: %w", err)
	}
	defer f.Close()
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, fmt.Errorf("listener descriptor: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listener descriptor: %w", err)
	}
	s.ln = channel.NewEndpoint(fd, "listener")
	return s, nil
}

// Addr returns the bound address, with the chosen port when addr asked for port 0
func (s *Server) Addr() net.Addr {
	return s.addr
}

func (s *Server) Stats() Stats {
	return Stats{
		Accepted: atomic.LoadInt64(&s.accepted),
		Served:   atomic.LoadInt64(&s.served),
		Failed:   atomic.LoadInt64(&s.failed),
	}
}

// Close releases the listening socket. It is only needed when Serve is never called
func (s *Server) Close() error {
	return s.ln.Close()
}

// Serve accepts and answers connections until ctx is done. Open connections are dropped on the way
// out. Cancellation is a clean shutdown and returns nil
func (s *Server) Serve(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return ErrServing
	}
	defer s.ln.Close()

	p, err := reactor.NewPoller(s.poller)
	if err != nil {
		return err
	}
	re, err := reactor.New(reactor.WithPoller(p), reactor.WithLogger(log.Logger("server")))
	if err != nil {
		p.Close()
		return err
	}
	defer re.Close()

	if _, err := re.Spawn("listener", s.accept); err != nil {
		return err
	}
	log.Info().Str("addr", s.addr.String()).Str("poller", s.poller).Msg("serving")

	err = re.Run(ctx)
	if ctx.Err() != nil && (err == nil || errors.Is(err, ctx.Err())) {
		log.Info().Str("addr", s.addr.String()).Interface("stats", s.Stats()).Msg("server stopped")
		return nil
	}
	return err
}

// accept takes every pending connection each time the listener turns readable and spawns a task
// for it
func (s *Server) accept(t *reactor.Task) error {
	for {
		if err := t.WaitReadable(s.ln); err != nil {
			return err
		}
		for {
			fd, _, err := unix.Accept(s.ln.Fd())
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			if err == unix.EINTR || err == unix.ECONNABORTED {
				continue
			}
			if err != nil {
				return fmt.Errorf("accept: %w", err)
			}
			unix.CloseOnExec(fd)
			if err := unix.SetNonblock(fd, true); err != nil {
				unix.Close(fd)
				log.Warn().Err(err).Msg("dropping connection")
				continue
			}

			id := atomic.AddInt64(&s.accepted, 1)
			ep := channel.NewEndpoint(fd, fmt.Sprintf("conn-%d", id))
			if _, err := t.Reactor().Spawn(ep.String(), s.serveConn(int(id), ep)); err != nil {
				ep.Close()
				return err
			}
		}
	}
}

// serveConn answers queries on ep until the client hangs up. Failures are logged and counted
// instead of returned, a server running for days would otherwise pile them up in the reactor
func (s *Server) serveConn(id int, ep *channel.Endpoint) reactor.TaskFunc {
	return func(t *reactor.Task) error {
		defer ep.Close()

		if err := s.exchange(t, id, ep); err != nil {
			if errors.Is(err, reactor.ErrAborted) {
				return nil
			}
			atomic.AddInt64(&s.failed, 1)
			log.Warn().Err(err).Int("conn", id).Msg("connection failed")
		}
		return nil
	}
}

func (s *Server) exchange(t *reactor.Task, id int, ep *channel.Endpoint) error {
	in, out := protocol.NewReader(t, ep), protocol.NewWriter(t, ep)
	buf := make([]byte, len(protocol.Query))
	for req := 0; ; req++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			if err == io.EOF {
				log.Debug().Int("conn", id).Int("requests", req).Msg("client hung up")
				return nil
			}
			if err == io.ErrUnexpectedEOF {
				err = protocol.ErrShortRead
			}
			return fmt.Errorf("conn %d request %d: %w", id, req, err)
		}
		if !bytes.Equal(buf, protocol.Query) {
			return &errors2.ProtocolError{
				Role:     "server",
				Worker:   id,
				Request:  req,
				Expected: protocol.Query,
				Got:      append([]byte(nil), buf...),
			}
		}
		if err := protocol.WriteFull(out, protocol.Response); err != nil {
			return fmt.Errorf("conn %d request %d: %w", id, req, err)
		}
		atomic.AddInt64(&s.served, 1)
	}
}
