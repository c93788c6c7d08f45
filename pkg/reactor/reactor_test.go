package reactor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/channel"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pollerFactory func() (Poller, error)

var pollers = map[string]pollerFactory{
	"poll":  func() (Poller, error) { return NewPollPoller(), nil },
	"epoll": NewEpollPoller,
}

func newReactor(t *testing.T, f pollerFactory) *Reactor {
	t.Helper()
	p, err := f()
	if errors.Is(err, ErrNotSupported) {
		t.Skip(err)
	}
	require.NoError(t, err)
	r, err := New(WithPoller(p))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func newPair(t *testing.T, name string) *channel.Pair {
	t.Helper()
	p, err := channel.NewPair(name)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func readAll(t *Task, ep *channel.Endpoint, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		if err := t.WaitReadable(ep); err != nil {
			return buf[:got], err
		}
		m, err := ep.Read(buf[got:])
		if err == channel.ErrWouldBlock {
			continue
		}
		if err != nil {
			return buf[:got], err
		}
		got += m
	}
	return buf, nil
}

func TestReactorPingPong(t *testing.T) {
	for name, f := range pollers {
		t.Run(name, func(t *testing.T) {
			r := newReactor(t, f)
			there := newPair(t, "there")
			back := newPair(t, "back")

			const rounds = 20
			var trace []string

			_, err := r.Spawn("echo", func(task *Task) error {
				for i := 0; i < rounds; i++ {
					b, err := readAll(task, there.R, 4)
					if err != nil {
						return err
					}
					trace = append(trace, "echo:"+string(b))
					if err := task.WaitWritable(back.W); err != nil {
						return err
					}
					if _, err := back.W.Write(b); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)

			_, err = r.Spawn("driver", func(task *Task) error {
				for i := 0; i < rounds; i++ {
					if err := task.WaitWritable(there.W); err != nil {
						return err
					}
					if _, err := there.W.Write([]byte("ping")); err != nil {
						return err
					}
					b, err := readAll(task, back.R, 4)
					if err != nil {
						return err
					}
					trace = append(trace, "driver:"+string(b))
				}
				return nil
			})
			require.NoError(t, err)

			require.NoError(t, r.Run(context.Background()))
			assert.Len(t, trace, 2*rounds)
			for i := 0; i < len(trace); i += 2 {
				assert.Equal(t, "echo:ping", trace[i])
				assert.Equal(t, "driver:ping", trace[i+1])
			}
			assert.Equal(t, 0, r.Pending())
			assert.Equal(t, 0, r.Live())
			assert.Equal(t, 2, r.Stats().Completed)
			assert.Greater(t, r.Stats().Cycles, 0)
		})
	}
}

func TestReactorDoubleRegistration(t *testing.T) {
	tests := []struct {
		name   string
		first  Direction
		second Direction
	}{
		{"readable twice", Readable, Readable},
		{"readable then writable", Readable, Writable},
		{"writable then readable", Writable, Readable},
		{"writable twice", Writable, Writable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r := newReactor(t, pollers["poll"])
			p := newPair(t, "shared")
			ep := p.R
			if tt.first == Writable {
				ep = p.W
			}

			wait := func(task *Task, d Direction) error {
				if d == Writable {
					return task.WaitWritable(ep)
				}
				return task.WaitReadable(ep)
			}

			var firstErr, secondErr error
			first, err := r.Spawn("first", func(task *Task) error {
				firstErr = wait(task, tt.first)
				return firstErr
			})
			require.NoError(t, err)
			assert.Equal(t, ep, first.Waiting())

			_, err = r.Spawn("second", func(task *Task) error {
				secondErr = wait(task, tt.second)
				return secondErr
			})
			require.NoError(t, err)

			require.Error(t, secondErr)
			assert.ErrorIs(t, secondErr, ErrAlreadyRegistered)
			assert.ErrorIs(t, secondErr, errors2.ErrUsage)

			runErr := r.Run(context.Background())
			var uerr *errors2.UsageError
			require.True(t, errors.As(runErr, &uerr))
			assert.Equal(t, "register_"+tt.second.String(), uerr.Op)
			assert.Equal(t, ep.String(), uerr.Endpoint)

			assert.ErrorIs(t, firstErr, ErrAborted)
			assert.True(t, first.Done())
			assert.Equal(t, 0, r.Pending())
		})
	}
}

func TestReactorInvalidEndpoint(t *testing.T) {
	r := newReactor(t, pollers["poll"])
	p := newPair(t, "closed")
	require.NoError(t, p.R.Close())

	var waitErr error
	_, err := r.Spawn("reader", func(task *Task) error {
		waitErr = task.WaitReadable(p.R)
		return waitErr
	})
	require.NoError(t, err)
	assert.ErrorIs(t, waitErr, ErrInvalidEndpoint)

	_, err = r.Spawn("nil", func(task *Task) error {
		return task.WaitWritable(nil)
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Run(context.Background()), ErrInvalidEndpoint)
}

func TestReactorEndpointClosedWhileWaiting(t *testing.T) {
	for name, f := range pollers {
		t.Run(name, func(t *testing.T) {
			r := newReactor(t, f)
			p := newPair(t, "gone")

			var waitErr error
			_, err := r.Spawn("reader", func(task *Task) error {
				waitErr = task.WaitReadable(p.R)
				return waitErr
			})
			require.NoError(t, err)
			require.NoError(t, p.R.Close())

			runErr := r.Run(context.Background())
			var uerr *errors2.UsageError
			require.True(t, errors.As(runErr, &uerr))
			assert.Equal(t, "poll", uerr.Op)
			assert.ErrorIs(t, waitErr, ErrAborted)
		})
	}
}

func TestReactorTimeoutAbortsStalledTasks(t *testing.T) {
	for name, f := range pollers {
		t.Run(name, func(t *testing.T) {
			r := newReactor(t, f)
			p := newPair(t, "silent")

			var waitErr error
			task, err := r.Spawn("stalled", func(task *Task) error {
				waitErr = task.WaitReadable(p.R)
				return waitErr
			})
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			runErr := r.Run(ctx)
			assert.Less(t, int64(time.Since(start)), int64(5*time.Second))
			assert.ErrorIs(t, runErr, context.DeadlineExceeded)
			assert.ErrorIs(t, waitErr, ErrAborted)
			assert.True(t, task.Done())
			assert.ErrorIs(t, task.Err(), ErrAborted)
			assert.Equal(t, 0, r.Stats().Failed)
		})
	}
}

func TestReactorWithoutDeadlineWaitsForStalledPeer(t *testing.T) {
	for name, f := range pollers {
		t.Run(name, func(t *testing.T) {
			r := newReactor(t, f)
			p := newPair(t, "stalled-peer")

			_, err := r.Spawn("reader", func(task *Task) error {
				if err := task.WaitReadable(p.R); err != nil {
					return err
				}
				var b [1]byte
				_, err := p.R.Read(b[:])
				return err
			})
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				done <- r.Run(context.Background())
			}()

			select {
			case err := <-done:
				t.Fatalf("run returned while the peer was silent: %v", err)
			case <-time.After(300 * time.Millisecond):
			}

			// the peer finally speaks, which is the only way out without a deadline
			_, err = p.W.Write([]byte{1})
			require.NoError(t, err)
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return after the peer wrote")
			}
			assert.Equal(t, 0, r.Stats().Failed)
		})
	}
}

func TestReactorCancelledBeforeRun(t *testing.T) {
	r := newReactor(t, pollers["poll"])
	p := newPair(t, "idle")

	_, err := r.Spawn("reader", func(task *Task) error {
		return task.WaitReadable(p.R)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
	assert.Equal(t, 0, r.Stats().Cycles)
}

func TestReactorTaskFailures(t *testing.T) {
	r := newReactor(t, pollers["poll"])
	boom := errors.New("boom")

	_, err := r.Spawn("ok", func(task *Task) error { return nil })
	require.NoError(t, err)
	failing, err := r.Spawn("fails", func(task *Task) error { return boom })
	require.NoError(t, err)
	panicking, err := r.Spawn("panics", func(task *Task) error { panic("oh no") })
	require.NoError(t, err)

	runErr := r.Run(context.Background())
	var merr *multierror.Error
	require.True(t, errors.As(runErr, &merr))
	assert.Len(t, merr.Errors, 2)

	assert.Equal(t, boom, failing.Err())
	assert.ErrorIs(t, panicking.Err(), ErrTaskPanic)
	assert.Equal(t, 2, r.Stats().Failed)
	assert.Equal(t, 3, r.Stats().Completed)
}

func TestReactorReadinessAfterHangup(t *testing.T) {
	r := newReactor(t, pollers["poll"])
	p := newPair(t, "hangup")

	var readErr error
	_, err := r.Spawn("reader", func(task *Task) error {
		if err := task.WaitReadable(p.R); err != nil {
			return err
		}
		_, readErr = p.R.Read(make([]byte, 8))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.W.Close())

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, io.EOF, readErr)
}

func TestReactorSpawnFromTask(t *testing.T) {
	r := newReactor(t, pollers["poll"])
	p := newPair(t, "nested")

	var order []string
	_, err := r.Spawn("parent", func(task *Task) error {
		order = append(order, "parent start")
		_, err := task.Reactor().Spawn("child", func(child *Task) error {
			order = append(order, "child start")
			if err := child.WaitReadable(p.R); err != nil {
				return err
			}
			order = append(order, "child resumed")
			return nil
		})
		if err != nil {
			return err
		}
		order = append(order, "parent after spawn")
		if err := task.WaitWritable(p.W); err != nil {
			return err
		}
		_, err = p.W.Write([]byte("x"))
		return err
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []string{"parent start", "child start", "parent after spawn", "child resumed"}, order)
}

func TestReactorMisuse(t *testing.T) {
	r := newReactor(t, pollers["poll"])

	_, err := r.Spawn("nil", nil)
	assert.ErrorIs(t, err, ErrNilTask)

	var nestedErr error
	_, err = r.Spawn("nested run", func(task *Task) error {
		p, err := channel.NewPair("nested-run")
		if err != nil {
			return err
		}
		defer p.Close()
		if err := task.WaitWritable(p.W); err != nil {
			return err
		}
		nestedErr = task.Reactor().Run(context.Background())
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))
	assert.ErrorIs(t, nestedErr, ErrAlreadyRunning)

	done, err := r.Spawn("done", func(task *Task) error { return nil })
	require.NoError(t, err)
	assert.ErrorIs(t, done.WaitReadable(nil), ErrNotRunning)

	require.NoError(t, r.Close())
	_, err = r.Spawn("late", func(task *Task) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Run(context.Background()), ErrClosed)
}

func TestReactorCloseAbortsSuspended(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	p := newPair(t, "close")

	var waitErr error
	task, err := r.Spawn("reader", func(task *Task) error {
		waitErr = task.WaitReadable(p.R)
		return waitErr
	})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitReadable, task.State())

	require.NoError(t, r.Close())
	assert.ErrorIs(t, waitErr, ErrAborted)
	assert.Equal(t, StateDone, task.State())
}
