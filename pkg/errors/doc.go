/*
The errors package provides the error taxonomy shared by the reactor, the protocol tasks
and the harness.

ProtocolError reports a payload mismatch together with the worker and request index,
UsageError reports misuse of the reactor. Both can be matched with errors.Is against
ErrProtocolViolation and ErrUsage. An incomplete delivery is not an error, it is reported
through the pending counts of the run result.

Usage

	import errors2 "github.com/pipebench/pipebench/pkg/errors"

	...

	if err := r.Run(ctx); err != nil {
		errors2.PrintError(err, 0)
	}

*/
package errors
