/*
Package channel models the byte channels connecting a worker to its master.

A Pair is an OS pipe with a readable end R and a writable end W. Endpoints are non-blocking by
default so a cooperative scheduler only ever touches them after a readiness poll; the goroutine
variant flips them to blocking mode with SetBlocking.

Close may be called concurrently with Read and Write on the same endpoint. Operations issued
after Close fail with ErrClosed.
*/
package channel
