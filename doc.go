/*
Package pipebench measures message passing between workers and masters connected by OS pipes.

The core is a cooperative single threaded reactor in pkg/reactor: tasks suspend on pipe readiness and
the reactor resumes them as the poller reports their endpoints ready. pkg/bench drives it, together
with select style master loops and plain goroutine variants for comparison, and produces one result
record per run. pkg/server speaks the same exchange over TCP from a single reactor.

There are no exports in the root package.

CLI tools part of `cmd/` include:
	- pipebench - runs single benchmarks, collects repeated trials and analyzes collections. It also serves
	  the exchange over TCP and loads such a server

*/
package pipebench
