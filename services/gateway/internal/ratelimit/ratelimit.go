// Package ratelimit throttles gateway traffic per client address with token
// buckets from golang.org/x/time/rate.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/diagnosis/hotel-frontdesk/pkg/response"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type PerIP struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// New returns a limiter allowing rps requests per second with the given burst
// for each client. Buckets idle for longer than idle are forgotten by Sweep.
func New(rps float64, burst int, idle time.Duration) *PerIP {
	return &PerIP{
		visitors: map[string]*visitor{},
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

func (p *PerIP) Allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	v, ok := p.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.rps, p.burst)}
		p.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep drops buckets that have been idle and returns how many were removed.
func (p *PerIP) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-p.idle)
	removed := 0
	for ip, v := range p.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(p.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until stop is closed.
func (p *PerIP) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Sweep()
		case <-stop:
			return
		}
	}
}

// Middleware keys on the TCP peer. Forwarding headers are client-controlled
// at the edge and are not consulted.
func (p *PerIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !p.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			response.RateLimit(w, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
