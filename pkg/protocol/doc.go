/*
Package protocol implements the fixed request/response exchange between a master and its worker.

On every cycle the master writes the 6 byte query STATUS and waits for the 2 byte response OK.
Payloads have no framing, each side reads exactly the length it expects. Worker and Master only see
an io.Reader and an io.Writer, so the same code runs on reactor tasks (NewReader and NewWriter wait
on a Waiter before touching the endpoint) and on goroutines with plain blocking files.
*/
package protocol
