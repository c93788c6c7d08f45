package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/pipebench/pipebench/pkg/channel"
	errors2 "github.com/pipebench/pipebench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWaiter struct {
	calls  []string
	before func(ep *channel.Endpoint)
}

func (r *recordingWaiter) WaitReadable(ep *channel.Endpoint) error {
	r.calls = append(r.calls, "r:"+ep.String())
	if r.before != nil {
		r.before(ep)
	}
	return nil
}

func (r *recordingWaiter) WaitWritable(ep *channel.Endpoint) error {
	r.calls = append(r.calls, "w:"+ep.String())
	return nil
}

func newPair(t *testing.T) *channel.Pair {
	t.Helper()
	p, err := channel.NewPair("test")
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestReadyReaderWaitsBeforeEveryRead(t *testing.T) {
	p := newPair(t)
	payload := []byte("STATUS")
	next := 0

	// one byte becomes available per wait so the read is assembled from six partial reads
	w := &recordingWaiter{before: func(ep *channel.Endpoint) {
		if next < len(payload) {
			_, err := p.W.Write(payload[next : next+1])
			require.NoError(t, err)
			next++
		}
	}}

	buf := make([]byte, len(payload))
	require.NoError(t, ReadFull(NewReader(w, p.R), buf))
	assert.Equal(t, payload, buf)
	assert.Len(t, w.calls, len(payload))
	for _, c := range w.calls {
		assert.Equal(t, "r:"+p.R.String(), c)
	}
}

func TestReadyWriter(t *testing.T) {
	p := newPair(t)
	w := &recordingWaiter{}

	require.NoError(t, WriteFull(NewWriter(w, p.W), Query))
	assert.Equal(t, []string{"w:" + p.W.String()}, w.calls)

	buf := make([]byte, len(Query))
	n, err := p.R.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, Query, buf[:n])
}

func TestReadFullShortRead(t *testing.T) {
	p := newPair(t)
	_, err := p.W.Write([]byte("STA"))
	require.NoError(t, err)
	require.NoError(t, p.W.Close())

	buf := make([]byte, len(Query))
	err = ReadFull(NewReader(&recordingWaiter{}, p.R), buf)
	assert.ErrorIs(t, err, ErrShortRead)

	err = ReadFull(NewReader(&recordingWaiter{}, p.R), buf)
	assert.ErrorIs(t, err, ErrShortRead, "eof without any data is short too")
}

func TestWorker(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		requests int
		respond  Payload
		stall    func(int) bool
		want     string
		wantErr  error
		errCycle int
	}{
		{
			name:     "answers every query",
			input:    strings.Repeat(QueryText, 3),
			requests: 3,
			want:     "OKOKOK",
		},
		{
			name:     "corrupt query is fatal",
			input:    QueryText + QueryText + "STATUZ" + QueryText,
			requests: 4,
			want:     "OKOK",
			wantErr:  errors2.ErrProtocolViolation,
			errCycle: 2,
		},
		{
			name:     "response override",
			input:    strings.Repeat(QueryText, 2),
			requests: 2,
			respond: func(cycle int) []byte {
				if cycle == 1 {
					return []byte("NO")
				}
				return nil
			},
			want: "OKNO",
		},
		{
			name:     "short query",
			input:    QueryText + "STAT",
			requests: 2,
			want:     "OK",
			wantErr:  ErrShortRead,
		},
		{
			name:     "stall stops answering",
			input:    strings.Repeat(QueryText, 2),
			requests: 5,
			stall:    func(cycle int) bool { return cycle >= 1 },
			want:     "OK",
			wantErr:  ErrStalled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			w := &Worker{
				Index:    7,
				Requests: tt.requests,
				In:       strings.NewReader(tt.input),
				Out:      &out,
				Respond:  tt.respond,
				Stall:    tt.stall,
			}
			err := w.Run()
			assert.Equal(t, tt.want, out.String())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			var perr *errors2.ProtocolError
			if errors.As(err, &perr) {
				assert.Equal(t, "worker", perr.Role)
				assert.Equal(t, 7, perr.Worker)
				assert.Equal(t, tt.errCycle, perr.Request)
				assert.Equal(t, []byte("STATUZ"), perr.Got)
			}
		})
	}
}

func TestMasterMismatchContinues(t *testing.T) {
	var out bytes.Buffer
	c := NewCounters(2, 5)
	m := &Master{
		Index:    1,
		Requests: 5,
		Out:      &out,
		In:       strings.NewReader("OKOKXXOKOK"),
		Counters: c,
	}

	require.NoError(t, m.Run())
	assert.Equal(t, strings.Repeat(QueryText, 5), out.String())

	pw, pr := c.Snapshot()
	assert.Equal(t, []int{5, 0}, pw)
	assert.Equal(t, []int{5, 1}, pr)
	assert.False(t, c.Complete())

	failures := c.Failures()
	require.Len(t, failures, 1)
	var perr *errors2.ProtocolError
	require.True(t, errors.As(failures[0], &perr))
	assert.Equal(t, "master", perr.Role)
	assert.Equal(t, 2, perr.Request)
	assert.Equal(t, []byte("XX"), perr.Got)
}

func TestMasterShortResponse(t *testing.T) {
	var out bytes.Buffer
	c := NewCounters(1, 3)
	m := &Master{Requests: 3, Out: &out, In: strings.NewReader("OKO"), Counters: c}

	assert.ErrorIs(t, m.Run(), ErrShortRead)
	pw, pr := c.Snapshot()
	assert.Equal(t, []int{1}, pw)
	assert.Equal(t, []int{2}, pr)
}

func TestMasterQueryOverride(t *testing.T) {
	var out bytes.Buffer
	c := NewCounters(1, 2)
	m := &Master{
		Requests: 2,
		Out:      &out,
		In:       strings.NewReader("OKOK"),
		Counters: c,
		Query: func(cycle int) []byte {
			if cycle == 0 {
				return []byte("status")
			}
			return nil
		},
	}
	require.NoError(t, m.Run())
	assert.Equal(t, "status"+QueryText, out.String())
	assert.True(t, c.Complete())
}

func TestCorrupt(t *testing.T) {
	for _, payload := range [][]byte{Query, Response} {
		for i := 0; i < 20; i++ {
			got, err := Corrupt(payload)
			require.NoError(t, err)
			assert.Len(t, got, len(payload))
			assert.NotEqual(t, payload, got)
		}
	}
}
