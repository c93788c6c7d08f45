package channel

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair_ReadWrite(t *testing.T) {
	p, err := NewPair("test")
	require.Nil(t, err)
	defer p.Close()

	buf := make([]byte, 8)
	_, err = p.R.Read(buf)
	assert.ErrorIs(t, err, ErrWouldBlock, "empty non-blocking pipe should not block")

	n, err := p.W.Write([]byte("STATUS"))
	require.Nil(t, err)
	assert.Equal(t, 6, n)

	n, err = p.R.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, "STATUS", string(buf[:n]))
}

func TestPair_EOF(t *testing.T) {
	p, err := NewPair("eof")
	require.Nil(t, err)
	defer p.Close()

	_, err = p.W.Write([]byte("OK"))
	require.Nil(t, err)
	require.Nil(t, p.W.Close())

	buf := make([]byte, 6)
	n, err := p.R.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, 2, n)

	_, err = p.R.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestEndpoint_Close(t *testing.T) {
	p, err := NewPair("close")
	require.Nil(t, err)

	fd := p.R.Fd()
	assert.True(t, fd >= 0)
	assert.True(t, p.R.Valid())

	assert.Nil(t, p.Close())
	assert.Nil(t, p.Close(), "close should be idempotent")
	assert.False(t, p.R.Valid())
	assert.Equal(t, -1, p.R.Fd())

	_, err = p.R.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = p.W.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEndpoint_Nil(t *testing.T) {
	var e *Endpoint
	assert.False(t, e.Valid())
	assert.Equal(t, -1, e.Fd())
	assert.Equal(t, "<nil>", e.String())
	assert.Nil(t, e.Close())
}

func TestEndpoint_Detach(t *testing.T) {
	p, err := NewPair("detach")
	require.Nil(t, err)
	defer p.Close()

	f, err := p.W.Detach()
	require.Nil(t, err)
	defer f.Close()
	assert.False(t, p.W.Valid())

	_, err = p.W.Detach()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewPairs(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"zero", 0},
		{"one", 1},
		{"several", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := NewPairs(tt.workers)
			require.Nil(t, err)
			defer ps.Close()

			assert.Len(t, ps.Inbound, tt.workers)
			assert.Len(t, ps.Outbound, tt.workers)

			seen := make(map[int]struct{})
			for i := 0; i < tt.workers; i++ {
				for _, ep := range []*Endpoint{ps.Inbound[i].R, ps.Inbound[i].W, ps.Outbound[i].R, ps.Outbound[i].W} {
					_, dup := seen[ep.Fd()]
					assert.False(t, dup, "descriptor %d reused", ep.Fd())
					seen[ep.Fd()] = struct{}{}
				}
			}
		})
	}
}

func TestPair_SetBlocking(t *testing.T) {
	p, err := NewPair("blocking")
	require.Nil(t, err)
	defer p.Close()

	require.Nil(t, p.SetBlocking(true))
	_, err = p.W.Write([]byte("OK"))
	require.Nil(t, err)

	buf := make([]byte, 2)
	n, err := p.R.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, 2, n)
}
