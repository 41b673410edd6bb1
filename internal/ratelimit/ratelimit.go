package ratelimit

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Scope identifies which cap a rejection came from.
type Scope string

const (
	ScopeMinute      Scope = "minute"
	ScopeHour        Scope = "hour"
	ScopeConcurrency Scope = "concurrency"
)

// LimitError reports the specific cap that was exceeded.
type LimitError struct {
	Identity string
	Scope    Scope
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q (%s)", e.Identity, e.Scope)
}

// Config holds the per-identity caps.
type Config struct {
	PerMinute     int
	PerHour       int
	MaxConcurrent int
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PerMinute <= 0 {
		c.PerMinute = 10
	}
	if c.PerHour <= 0 {
		c.PerHour = 100
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	return c
}

// window tracks one identity's counters. All fields are guarded by the
// owning shard's mutex.
type window struct {
	minuteCount int
	hourCount   int
	concurrent  int
	minuteReset time.Time
	hourReset   time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*window
}

const shardCount = 32

// Limiter is a sharded in-memory admission controller. Identities hash to
// shards so concurrent admits for different identities rarely contend;
// updates for a single identity are serialized by the shard mutex, which
// keeps the read-then-increment linearizable.
type Limiter struct {
	cfg    Config
	shards [shardCount]*shard
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// New builds a limiter and starts the background sweep that evicts idle
// identities once both windows expired and no request is in flight.
func New(cfg Config) *Limiter {
	l := &Limiter{
		cfg:  cfg.withDefaults(),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*window)}
	}
	go l.sweepLoop()
	return l
}

// Close stops the background sweep. Safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) shardFor(identity string) *shard {
	h := fnv.New32a()
	h.Write([]byte(identity))
	return l.shards[h.Sum32()%shardCount]
}

// Admit counts one request against the identity's minute, hour and
// concurrency caps. On rejection nothing is counted and the returned
// *LimitError names the cap that was hit, checked in minute, hour,
// concurrency order.
func (l *Limiter) Admit(identity string) error {
	now := l.now()
	s := l.shardFor(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[identity]
	if !ok {
		w = &window{
			minuteReset: now.Add(time.Minute),
			hourReset:   now.Add(time.Hour),
		}
		s.entries[identity] = w
	}

	if now.After(w.minuteReset) {
		w.minuteCount = 0
		w.minuteReset = now.Add(time.Minute)
	}
	if now.After(w.hourReset) {
		w.hourCount = 0
		w.hourReset = now.Add(time.Hour)
	}

	if w.minuteCount >= l.cfg.PerMinute {
		return &LimitError{Identity: identity, Scope: ScopeMinute}
	}
	if w.hourCount >= l.cfg.PerHour {
		return &LimitError{Identity: identity, Scope: ScopeHour}
	}
	if w.concurrent >= l.cfg.MaxConcurrent {
		return &LimitError{Identity: identity, Scope: ScopeConcurrency}
	}

	w.minuteCount++
	w.hourCount++
	w.concurrent++
	return nil
}

// Unadmit rolls back a just-admitted request that was rejected before any
// work ran, refunding the window counts along with the concurrency slot. A
// rejected question must not consume the identity's minute or hour budget.
func (l *Limiter) Unadmit(identity string) {
	s := l.shardFor(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[identity]
	if !ok {
		return
	}
	if w.minuteCount > 0 {
		w.minuteCount--
	}
	if w.hourCount > 0 {
		w.hourCount--
	}
	if w.concurrent > 0 {
		w.concurrent--
	}
}

// Release returns one concurrency slot for a request that ran to
// completion; the window counts stay spent. It is idempotent for unknown
// identities, never fails and never drives the counter negative.
func (l *Limiter) Release(identity string) {
	s := l.shardFor(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[identity]
	if !ok {
		return
	}
	if w.concurrent > 0 {
		w.concurrent--
	}
}

// Usage reports the identity's current minute count, hour count and
// in-flight request count.
func (l *Limiter) Usage(identity string) (minute, hour, concurrent int) {
	now := l.now()
	s := l.shardFor(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[identity]
	if !ok {
		return 0, 0, 0
	}
	minute, hour = w.minuteCount, w.hourCount
	if now.After(w.minuteReset) {
		minute = 0
	}
	if now.After(w.hourReset) {
		hour = 0
	}
	return minute, hour, w.concurrent
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep deletes entries whose hour window expired with no request in
// flight, bounding memory with idle identities.
func (l *Limiter) sweep() {
	now := l.now()
	for _, s := range l.shards {
		s.mu.Lock()
		for id, w := range s.entries {
			if w.concurrent == 0 && now.After(w.hourReset) {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
}
