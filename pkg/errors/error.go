package errors

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/log"
)

var (
	// ErrProtocolViolation is matched by every *ProtocolError
	ErrProtocolViolation = fmt.Errorf("protocol violation")
	// ErrUsage is matched by every *UsageError
	ErrUsage = fmt.Errorf("usage error")
)

// prefixFromDepth will create the indent prefix for a certain depth
// of string, e.g. 2 will yield "  " * 2 -> "    "
func prefixFromDepth(depth int) string {
	var p []byte
	for i := 0; i < depth; i++ {
		p = append(p, "  "...)
	}
	return string(p)
}

// PrintError will traverse the nested error and log every ProtocolError and UsageError found
// with its context. multierror.Error values are expanded recursively with an increased indent
func PrintError(err error, depth int) {
	var (
		merr *multierror.Error
		perr *ProtocolError
		uerr *UsageError
	)

	if errors.As(err, &merr) {
		for _, v := range merr.Errors {
			PrintError(v, depth+1)
		}
	} else if errors.As(err, &perr) {
		perr.LogError(depth)
	} else if errors.As(err, &uerr) {
		uerr.LogError(depth)
	} else {
		log.Error().Err(err).Msg(prefixFromDepth(depth) + "error")
	}
}

// ProtocolError is returned when the bytes read from a channel do not match the
// payload expected at that point of the exchange
type ProtocolError struct {
	Role     string // Role is worker, master or server
	Worker   int    // Worker is the index of the worker/master pair
	Request  int    // Request is the zero based cycle the payload was read in
	Expected []byte
	Got      []byte
}

func (p *ProtocolError) Error() string {
	return fmt.Sprintf("protocolError [%s %d request %d]: expected %q but got %q", p.Role, p.Worker, p.Request, p.Expected, p.Got)
}

func (p *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// LogError will log the context surrounding the error at the provided indent depth
func (p *ProtocolError) LogError(depth int) {
	log.Error().
		Str("role", p.Role).
		Int("worker", p.Worker).
		Int("request", p.Request).
		Bytes("expected", p.Expected).
		Bytes("got", p.Got).
		Msg(prefixFromDepth(depth) + "protocol violation")
}

// UsageError indicates the reactor was driven in a way that breaks its bookkeeping, e.g. the same
// endpoint registered twice. It always points at a scheduler bug and aborts the run
type UsageError struct {
	Op       string // Op is the reactor operation, e.g. register_readable
	Endpoint string // Endpoint is the printable name of the endpoint involved
	Err      error  // Err is the sentinel describing what went wrong
}

func (u *UsageError) Error() string {
	return fmt.Sprintf("usageError [%s %s]: %v", u.Op, u.Endpoint, u.Err)
}

func (u *UsageError) Unwrap() error {
	return u.Err
}

func (u *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// LogError logs the usage error loudly. These should never happen in a correct scheduler
func (u *UsageError) LogError(depth int) {
	log.Error().
		Str("op", u.Op).
		Str("endpoint", u.Endpoint).
		Err(u.Err).
		Msg(prefixFromDepth(depth) + "reactor usage error")
}
