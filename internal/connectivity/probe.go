// Package connectivity decides whether remote mirror calls are worth
// attempting.  Probes never return errors: any failure means offline.
package connectivity

import (
	"context"
	"net"
	"sync"
	"time"
)

// Prober reports whether the network is reachable right now.
type Prober interface {
	IsOnline(ctx context.Context) bool
}

// MaxTimeout caps a single dial.
const MaxTimeout = 2 * time.Second

// TCPProbe dials a well known host:port.  A successful handshake means
// online; the socket is closed immediately.
type TCPProbe struct {
	Addr    string
	Timeout time.Duration
	// CacheTTL keeps the last answer for a short while.  Zero disables
	// caching; values of a second or more are clamped below one second.
	CacheTTL time.Duration

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
	now  func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	cached   bool
}

// NewTCPProbe returns a probe for addr (for example "8.8.8.8:53").
func NewTCPProbe(addr string, timeout, cacheTTL time.Duration) *TCPProbe {
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	if cacheTTL >= time.Second {
		cacheTTL = 900 * time.Millisecond
	}
	d := &net.Dialer{}
	return &TCPProbe{
		Addr:     addr,
		Timeout:  timeout,
		CacheTTL: cacheTTL,
		dial:     d.DialContext,
		now:      time.Now,
	}
}

func (p *TCPProbe) IsOnline(ctx context.Context) bool {
	if p.CacheTTL > 0 {
		p.mu.Lock()
		if !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < p.CacheTTL {
			v := p.cached
			p.mu.Unlock()
			return v
		}
		p.mu.Unlock()
	}

	online := p.probe(ctx)

	if p.CacheTTL > 0 {
		p.mu.Lock()
		p.cached, p.cachedAt = online, p.now()
		p.mu.Unlock()
	}
	return online
}

func (p *TCPProbe) probe(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Static is a probe with a fixed, switchable answer.  It is used when the
// service is forced offline by configuration and by tests.
type Static struct {
	mu     sync.RWMutex
	online bool
}

// NewStatic returns a probe that answers online until Set changes it.
func NewStatic(online bool) *Static { return &Static{online: online} }

// Set changes the answer of subsequent calls.
func (s *Static) Set(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

func (s *Static) IsOnline(context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}
