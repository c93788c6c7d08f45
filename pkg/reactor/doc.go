/*
Package reactor implements a cooperative single threaded I/O scheduler.

Tasks are spawned on a Reactor and suspend themselves by waiting for an endpoint to become readable
or writable. The reactor keeps one interest map per direction, polls the kernel for the union of both
and resumes exactly the task bound to each ready endpoint. Control is handed to one task at a time,
so task bodies can share state without locks as long as it is not touched outside the reactor.

	r, err := reactor.New(reactor.WithPoller(reactor.NewPollPoller()))
	if err != nil {
		return err
	}
	defer r.Close()

	r.Spawn("reader", func(t *reactor.Task) error {
		if err := t.WaitReadable(pair.R); err != nil {
			return err
		}
		_, err := pair.R.Read(buf)
		return err
	})
	if err := r.Run(ctx); err != nil {
		return err
	}

Registering an endpoint that is already registered, waiting on a closed endpoint, or readiness for an
endpoint nobody waits on are usage errors. They abort the run: every suspended task is resumed with
ErrAborted and Run returns the *errors.UsageError.
*/
package reactor
