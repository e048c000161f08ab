package server

import (
	"errors"
	"sync"

	"github.com/lawnchairsociety/wavecollapse/internal/config"
	"github.com/lawnchairsociety/wavecollapse/internal/metrics"
)

var (
	ErrStreamLimit = errors.New("server: too many open streams")
	ErrClientLimit = errors.New("server: too many open streams for this client")
)

// StreamLimiter admits solve streams while the per-client and total
// limits allow it. Zero limits are unlimited.
type StreamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	open     int
	limits   config.ConnectionsConfig
	recorder *metrics.Recorder
}

// StreamSlot is an admitted stream. It is held until Release.
type StreamSlot struct {
	limiter *StreamLimiter
	ip      string
	once    sync.Once
}

// NewStreamLimiter creates a limiter reporting to recorder, which may be nil.
func NewStreamLimiter(limits config.ConnectionsConfig, recorder *metrics.Recorder) *StreamLimiter {
	return &StreamLimiter{
		perIP:    make(map[string]int),
		limits:   limits,
		recorder: recorder,
	}
}

// Acquire admits one stream for ip. A refused stream takes nothing and
// returns ErrStreamLimit or ErrClientLimit.
func (l *StreamLimiter) Acquire(ip string) (*StreamSlot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.limits.MaxTotal > 0 && l.open >= l.limits.MaxTotal {
		l.recorder.StreamRejected("total")
		return nil, ErrStreamLimit
	}
	if l.limits.MaxPerIP > 0 && l.perIP[ip] >= l.limits.MaxPerIP {
		l.recorder.StreamRejected("client")
		return nil, ErrClientLimit
	}

	l.perIP[ip]++
	l.open++
	l.recorder.ObserveStreamClients(len(l.perIP))
	return &StreamSlot{limiter: l, ip: ip}, nil
}

// Release frees the slot. Only the first call has an effect.
func (s *StreamSlot) Release() {
	s.once.Do(func() {
		s.limiter.release(s.ip)
	})
}

func (l *StreamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.perIP[ip]--
	if l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
	l.open--
	l.recorder.ObserveStreamClients(len(l.perIP))
}

// Open returns the number of admitted streams.
func (l *StreamLimiter) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

// Clients returns the number of distinct IPs holding a slot.
func (l *StreamLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perIP)
}

// OpenFor returns the number of streams ip holds.
func (l *StreamLimiter) OpenFor(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
