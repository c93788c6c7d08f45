package errors

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/stretchr/testify/assert"
)

var errDouble = fmt.Errorf("already registered")

func TestErrorsMatchSentinels(t *testing.T) {
	perr := &ProtocolError{Role: "worker", Worker: 1, Request: 2, Expected: []byte("STATUS"), Got: []byte("STATUZ")}
	uerr := &UsageError{Op: "register_readable", Endpoint: "in-0.r", Err: errDouble}

	wrapped := fmt.Errorf("worker 1: %w", perr)
	assert.True(t, errors.Is(wrapped, ErrProtocolViolation))
	assert.False(t, errors.Is(wrapped, ErrUsage))

	assert.True(t, errors.Is(uerr, ErrUsage))
	assert.True(t, errors.Is(uerr, errDouble))
	assert.False(t, errors.Is(uerr, ErrProtocolViolation))

	assert.Contains(t, perr.Error(), `expected "STATUS" but got "STATUZ"`)
	assert.Contains(t, uerr.Error(), "register_readable in-0.r")
}

func TestPrintErrorExpandsMultierror(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	var merr *multierror.Error
	merr = multierror.Append(merr,
		&ProtocolError{Role: "master", Worker: 0, Request: 3, Expected: []byte("OK"), Got: []byte("KO")},
		&UsageError{Op: "register_writable", Endpoint: "out-0.w", Err: errDouble},
		fmt.Errorf("plain"),
	)
	PrintError(merr, 0)

	out := buf.String()
	assert.Contains(t, out, "  protocol violation")
	assert.Contains(t, out, "  reactor usage error")
	assert.Contains(t, out, "plain")
}

func TestPrefixFromDepth(t *testing.T) {
	assert.Equal(t, "", prefixFromDepth(0))
	assert.Equal(t, "    ", prefixFromDepth(2))
}
