/*
Package server speaks the STATUS/OK exchange over TCP. Server drives the listening socket and every
accepted connection as tasks of a single reactor, so one goroutine answers any number of clients.
Load is the matching client: it opens a connection per client and runs a protocol.Master on each,
producing the same result.Record as a pipe run.

	s, err := server.Listen("127.0.0.1:9090")
	if err != nil {
		// the address could not be bound
	}
	go s.Serve(ctx)

	rec, err := server.Load(ctx, s.Addr().String(), 16, 1000)
*/
package server
