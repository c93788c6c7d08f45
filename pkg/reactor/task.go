package reactor

import (
	"fmt"

	"github.com/pipebench/pipebench/pkg/channel"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
)

// State is the lifecycle position of a Task
type State int

const (
	StateCreated State = iota
	StateRunning
	StateAwaitReadable
	StateAwaitWritable
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateAwaitReadable:
		return "await_readable"
	case StateAwaitWritable:
		return "await_writable"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Direction selects which interest map a wait lands in
type Direction int

const (
	Readable Direction = iota
	Writable
)

func (d Direction) String() string {
	if d == Writable {
		return "writable"
	}
	return "readable"
}

// TaskFunc is the body of a task. It receives the task so it can suspend itself with WaitReadable
// and WaitWritable. A non-nil return is recorded as the task's failure
type TaskFunc func(t *Task) error

type intent struct {
	ep   *channel.Endpoint
	dir  Direction
	done bool
	err  error
}

// Task is a resumable unit of work driven by a Reactor. Its body runs on its own goroutine but only
// while the reactor has handed it control, so at most one task executes at any moment and task code
// needs no locking against other tasks of the same reactor.
//
// The methods of a Task must only be called from the task's own body or, once the reactor is idle,
// from the goroutine driving the reactor
type Task struct {
	id      int
	name    string
	r       *Reactor
	state   State
	err     error
	waiting *channel.Endpoint
	resumes int

	resume chan error
	yield  chan intent
}

func newTask(r *Reactor, id int, name string) *Task {
	return &Task{
		id:     id,
		name:   name,
		r:      r,
		resume: make(chan error),
		yield:  make(chan intent),
	}
}

func (t *Task) ID() int { return t.id }
func (t *Task) Name() string { return t.name }
func (t *Task) State() State { return t.state }
func (t *Task) Reactor() *Reactor { return t.r }
func (t *Task) Resumes() int { return t.resumes }
func (t *Task) Done() bool { return t.state == StateDone }
func (t *Task) String() string { return fmt.Sprintf("%s#%d", t.name, t.id) }

// Err returns the error the task finished with. It is nil while the task is alive
func (t *Task) Err() error { return t.err }

// Waiting returns the endpoint the task is suspended on, or nil
func (t *Task) Waiting() *channel.Endpoint { return t.waiting }

// WaitReadable suspends the task until ep is readable. A nil return means the reactor observed
// readiness; the following read may still report io.EOF when the peer hung up
func (t *Task) WaitReadable(ep *channel.Endpoint) error {
	return t.wait(ep, Readable)
}

// WaitWritable suspends the task until ep is writable
func (t *Task) WaitWritable(ep *channel.Endpoint) error {
	return t.wait(ep, Writable)
}

func (t *Task) wait(ep *channel.Endpoint, dir Direction) error {
	if t.state != StateRunning {
		return &errors2.UsageError{Op: "wait_" + dir.String(), Endpoint: ep.String(), Err: ErrNotRunning}
	}
	t.yield <- intent{ep: ep, dir: dir}
	return <-t.resume
}

func (t *Task) start(fn TaskFunc) {
	go func() {
		err := <-t.resume
		if err == nil {
			err = t.call(fn)
		}
		t.yield <- intent{done: true, err: err}
	}()
}

func (t *Task) call(fn TaskFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrTaskPanic, t, p)
		}
	}()
	return fn(t)
}
