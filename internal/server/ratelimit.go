package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleClientTTL is how long a client may go without requests before its
// bucket is dropped; by then the bucket has refilled anyway
const idleClientTTL = 10 * time.Minute

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// clientLimiter keeps one token bucket per client IP
type clientLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
	clients   map[string]*clientEntry
}

// newClientLimiter returns nil when perMinute is not positive
func newClientLimiter(perMinute, burst int) *clientLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &clientLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		idleTTL: idleClientTTL,
		now:     time.Now,
		clients: make(map[string]*clientEntry),
	}
}

func (l *clientLimiter) allow(clientID string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	entry, ok := l.clients[clientID]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientID] = entry
	}
	entry.lastAccess = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

// sweep drops clients idle for longer than idleTTL; l.mu must be held
func (l *clientLimiter) sweep(now time.Time) {
	for id, entry := range l.clients {
		if now.Sub(entry.lastAccess) > l.idleTTL {
			delete(l.clients, id)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
