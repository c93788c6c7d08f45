package reactor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/channel"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/rs/zerolog"
)

var wakeByte = []byte{0}

// Stats are counters accumulated across every Run of a reactor
type Stats struct {
	Cycles    int // Cycles is the number of readiness waits that returned
	Resumes   int // Resumes counts every handoff of control to a task, including the first
	Spawned   int
	Completed int
	Failed    int // Failed counts tasks that returned a non-nil error other than an abort
}

// Reactor multiplexes suspended tasks over the readiness of their endpoints. Each endpoint is
// bound to at most one task in at most one direction at any moment, and a task is bound to at most
// one endpoint. The reactor is not safe for concurrent use: Spawn, Run and Close must be called from
// one goroutine, or from inside a task of the same reactor
type Reactor struct {
	poller   Poller
	logger   zerolog.Logger
	readable map[*channel.Endpoint]*Task
	writable map[*channel.Endpoint]*Task
	wake     *channel.Pair

	events Events
	rdKeys []*channel.Endpoint
	wrKeys []*channel.Endpoint

	nextID   int
	live     int
	running  bool
	closed   bool
	err      error
	failures *multierror.Error
	stats    Stats
}

// New creates a reactor with an empty interest set. The default backend is poll(2)
func New(opts ...Option) (*Reactor, error) {
	wake, err := channel.NewPair("wake")
	if err != nil {
		return nil, fmt.Errorf("failed to create wake pipe: %w", err)
	}

	r := &Reactor{
		logger:   log.Logger("reactor"),
		readable: make(map[*channel.Endpoint]*Task),
		writable: make(map[*channel.Endpoint]*Task),
		wake:     wake,
	}
	for _, o := range opts {
		o(r)
	}
	if r.poller == nil {
		r.poller = NewPollPoller()
	}
	return r, nil
}

// Spawn creates a task and runs it until its first suspension or completion. Called from inside
// a running task, the new task runs to its first suspension before the caller continues
func (r *Reactor) Spawn(name string, fn TaskFunc) (*Task, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if fn == nil {
		return nil, &errors2.UsageError{Op: "spawn", Endpoint: name, Err: ErrNilTask}
	}

	r.nextID++
	t := newTask(r, r.nextID, name)
	r.live++
	r.stats.Spawned++
	t.start(fn)

	var in error
	if r.err != nil {
		in = r.abortCause()
	}
	r.step(t, in)
	return t, nil
}

// Run drives the loop until no task is registered in either interest map, a usage error occurs,
// or ctx is done. On a usage error or cancellation every still suspended task is resumed with an
// error wrapping ErrAborted and allowed to finish before Run returns.
//
// The returned error is the usage error or the wrapped ctx error when the run was aborted, and
// otherwise the accumulated failures of the tasks, if any
func (r *Reactor) Run(ctx context.Context) error {
	if r.closed {
		return ErrClosed
	}
	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	defer func() { r.running = false }()

	stop := r.watch(ctx)
	defer stop()

	for r.err == nil && r.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			r.fail(fmt.Errorf("reactor interrupted: %w", err))
			break
		}
		r.cycle(ctx)
	}

	if r.err != nil {
		r.abort()
		return r.err
	}
	return r.failures.ErrorOrNil()
}

// Pending returns the number of registered interests
func (r *Reactor) Pending() int {
	return len(r.readable) + len(r.writable)
}

// Live returns the number of spawned tasks that have not finished
func (r *Reactor) Live() int {
	return r.live
}

func (r *Reactor) Stats() Stats {
	return r.stats
}

// Err returns the fatal error that aborted the reactor, if any
func (r *Reactor) Err() error {
	return r.err
}

// Close aborts any task still suspended and releases the wake pipe and the poller
func (r *Reactor) Close() error {
	if r.closed {
		return nil
	}
	if r.Pending() > 0 {
		r.fail(ErrClosed)
		r.abort()
	}
	r.closed = true

	var result *multierror.Error
	if err := r.wake.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.poller.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (r *Reactor) cycle(ctx context.Context) {
	r.rdKeys = appendKeys(r.rdKeys[:0], r.readable)
	if ctx.Done() != nil {
		r.rdKeys = append(r.rdKeys, r.wake.R)
	}
	r.wrKeys = appendKeys(r.wrKeys[:0], r.writable)

	if err := r.poller.Poll(r.rdKeys, r.wrKeys, -1, &r.events); err != nil {
		r.fail(err)
		return
	}
	r.stats.Cycles++
	r.logger.Trace().
		Int("cycle", r.stats.Cycles).
		Int("interest_readable", len(r.readable)).
		Int("interest_writable", len(r.writable)).
		Int("ready_readable", len(r.events.Readable)).
		Int("ready_writable", len(r.events.Writable)).
		Msg("poll returned")

	for _, ep := range r.events.Invalid {
		r.usage("poll", ep, ErrInvalidEndpoint)
		return
	}

	// readable before writable; each ready endpoint resumes exactly its bound task
	for _, ep := range r.events.Readable {
		if ep == r.wake.R {
			r.drainWake()
			continue
		}
		if !r.dispatch(r.readable, ep, "resume_readable") {
			return
		}
	}
	for _, ep := range r.events.Writable {
		if !r.dispatch(r.writable, ep, "resume_writable") {
			return
		}
	}
}

func (r *Reactor) dispatch(m map[*channel.Endpoint]*Task, ep *channel.Endpoint, op string) bool {
	t, ok := m[ep]
	if !ok {
		r.usage(op, ep, ErrNoTask)
		return false
	}
	delete(m, ep)
	t.waiting = nil
	r.step(t, nil)
	return r.err == nil
}

// step hands control to t and processes what it yields until it is suspended on a registered
// endpoint or finished. A rejected registration is delivered back to the task as the wait's error
func (r *Reactor) step(t *Task, in error) {
	for {
		t.state = StateRunning
		t.resumes++
		r.stats.Resumes++
		t.resume <- in

		it := <-t.yield
		if it.done {
			r.finish(t, it.err)
			return
		}
		if in = r.register(t, it.ep, it.dir); in == nil {
			return
		}
	}
}

func (r *Reactor) register(t *Task, ep *channel.Endpoint, dir Direction) error {
	op := "register_" + dir.String()
	if r.err != nil {
		return r.abortCause()
	}
	if !ep.Valid() {
		return r.usage(op, ep, ErrInvalidEndpoint)
	}
	if _, ok := r.readable[ep]; ok {
		return r.usage(op, ep, ErrAlreadyRegistered)
	}
	if _, ok := r.writable[ep]; ok {
		return r.usage(op, ep, ErrAlreadyRegistered)
	}

	if dir == Writable {
		r.writable[ep] = t
		t.state = StateAwaitWritable
	} else {
		r.readable[ep] = t
		t.state = StateAwaitReadable
	}
	t.waiting = ep
	return nil
}

func (r *Reactor) finish(t *Task, err error) {
	t.state = StateDone
	t.err = err
	t.waiting = nil
	r.live--
	r.stats.Completed++

	if err == nil || errors.Is(err, ErrAborted) {
		return
	}
	r.stats.Failed++
	r.failures = multierror.Append(r.failures, fmt.Errorf("task %s: %w", t, err))
	r.logger.Debug().Str("task", t.String()).Err(err).Msg("task failed")
}

func (r *Reactor) usage(op string, ep *channel.Endpoint, err error) error {
	uerr := &errors2.UsageError{Op: op, Endpoint: ep.String(), Err: err}
	r.logger.Error().Str("op", op).Str("endpoint", ep.String()).Err(err).Msg("reactor usage error")
	r.fail(uerr)
	return uerr
}

func (r *Reactor) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reactor) abortCause() error {
	return fmt.Errorf("%w: %v", ErrAborted, r.err)
}

// abort resumes every suspended task with the abort cause until none is left. Tasks that try to
// wait again get the same error back
func (r *Reactor) abort() {
	cause := r.abortCause()
	for {
		t := r.takeAny()
		if t == nil {
			return
		}
		r.step(t, cause)
	}
}

func (r *Reactor) takeAny() *Task {
	for ep, t := range r.readable {
		delete(r.readable, ep)
		t.waiting = nil
		return t
	}
	for ep, t := range r.writable {
		delete(r.writable, ep)
		t.waiting = nil
		return t
	}
	return nil
}

// watch turns ctx cancellation into readiness of the wake pipe so a blocked poll returns
func (r *Reactor) watch(ctx context.Context) func() {
	done := ctx.Done()
	if done == nil {
		return func() {}
	}

	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-done:
			// a full pipe already wakes the poll
			_, _ = r.wake.W.Write(wakeByte)
		case <-stop:
		}
	}()
	return func() {
		close(stop)
		<-exited
	}
}

func (r *Reactor) drainWake() {
	var buf [64]byte
	for {
		if _, err := r.wake.R.Read(buf[:]); err != nil {
			return
		}
	}
}

func appendKeys(dst []*channel.Endpoint, m map[*channel.Endpoint]*Task) []*channel.Endpoint {
	for ep := range m {
		dst = append(dst, ep)
	}
	return dst
}
