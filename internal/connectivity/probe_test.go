package connectivity

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPProbe_Online(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	p := NewTCPProbe(ln.Addr().String(), time.Second, 0)
	assert.True(t, p.IsOnline(context.Background()))
}

func TestTCPProbe_OfflineWhenNothingListens(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	p := NewTCPProbe(addr, 200*time.Millisecond, 0)
	assert.False(t, p.IsOnline(context.Background()))
}

type fakeConn struct {
	net.Conn
	closed *int
}

func (c fakeConn) Close() error { *c.closed++; return nil }

func TestTCPProbe_ClosesSocketAndCaches(t *testing.T) {
	dials, closed := 0, 0
	now := time.Unix(0, 0)
	p := NewTCPProbe("example:80", time.Second, 500*time.Millisecond)
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dials++
		return fakeConn{closed: &closed}, nil
	}
	p.now = func() time.Time { return now }

	assert.True(t, p.IsOnline(context.Background()))
	assert.True(t, p.IsOnline(context.Background()))
	assert.Equal(t, 1, dials, "second call served from cache")
	assert.Equal(t, 1, closed)

	now = now.Add(time.Second)
	assert.True(t, p.IsOnline(context.Background()))
	assert.Equal(t, 2, dials)
	assert.Equal(t, 2, closed)
}

func TestTCPProbe_DialErrorIsOffline(t *testing.T) {
	p := NewTCPProbe("example:80", time.Second, 0)
	p.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("network unreachable")
	}
	assert.False(t, p.IsOnline(context.Background()))
}

func TestNewTCPProbe_ClampsSettings(t *testing.T) {
	p := NewTCPProbe("x:1", 10*time.Second, 5*time.Second)
	assert.Equal(t, MaxTimeout, p.Timeout)
	assert.Less(t, p.CacheTTL, time.Second)
}

func TestStatic(t *testing.T) {
	s := NewStatic(false)
	assert.False(t, s.IsOnline(context.Background()))
	s.Set(true)
	assert.True(t, s.IsOnline(context.Background()))
}
