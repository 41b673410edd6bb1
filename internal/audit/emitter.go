package audit

import (
	"context"
	"sync"
	"time"

	"github.com/memberwise-ai/memberwise/internal/redact"
)

// Sink consumes audit events (stdout, JSONL file).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Metrics counts emitter activity for observation and tests.
type Metrics struct {
	enqueued uint64
	dropped  uint64

	sinkSuccess map[string]uint64
	sinkFailure map[string]uint64
}

func (m *Metrics) Enqueued() uint64 { return m.enqueued }
func (m *Metrics) Dropped() uint64  { return m.dropped }

func (m *Metrics) SinkSuccess(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkSuccess[name]
}

func (m *Metrics) SinkFailure(name string) uint64 {
	if m == nil {
		return 0
	}
	return m.sinkFailure[name]
}

func (m *Metrics) snapshot() Metrics {
	out := Metrics{
		enqueued:    m.enqueued,
		dropped:     m.dropped,
		sinkSuccess: make(map[string]uint64, len(m.sinkSuccess)),
		sinkFailure: make(map[string]uint64, len(m.sinkFailure)),
	}
	for k, v := range m.sinkSuccess {
		out.sinkSuccess[k] = v
	}
	for k, v := range m.sinkFailure {
		out.sinkFailure[k] = v
	}
	return out
}

// EmitterConfig sizes the queue and worker pool.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
}

// Emitter buffers events and delivers them to every sink from background
// workers.
type Emitter struct {
	queue           chan *Event
	sinks           []Sink
	shutdownTimeout time.Duration

	mu        sync.RWMutex
	metricsMu sync.Mutex
	metrics   *Metrics
	closed    bool
	wg        sync.WaitGroup
}

// NewEmitter starts the delivery workers.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}

	m := &Metrics{
		sinkSuccess: make(map[string]uint64, len(sinks)),
		sinkFailure: make(map[string]uint64, len(sinks)),
	}
	for _, s := range sinks {
		m.sinkSuccess[s.Name()] = 0
		m.sinkFailure[s.Name()] = 0
	}

	e := &Emitter{
		queue:           make(chan *Event, cfg.QueueSize),
		sinks:           sinks,
		shutdownTimeout: cfg.ShutdownTimeout,
		metrics:         m,
	}
	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Emit enqueues the event without blocking; full queue drops the event.
func (e *Emitter) Emit(ev *Event) {
	if e == nil || ev == nil {
		return
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.countDrop()
		return
	}

	select {
	case e.queue <- ev:
		e.metricsMu.Lock()
		e.metrics.enqueued++
		e.metricsMu.Unlock()
	default:
		e.countDrop()
	}
}

func (e *Emitter) countDrop() {
	e.metricsMu.Lock()
	e.metrics.dropped++
	e.metricsMu.Unlock()
}

// Close stops accepting events, waits briefly for the queue to drain and
// closes the sinks.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			redact.Logf("audit: sink %s close error: %v", s.Name(), err)
		}
	}
}

// MetricsSnapshot copies the current counters.
func (e *Emitter) MetricsSnapshot() Metrics {
	if e == nil || e.metrics == nil {
		return Metrics{}
	}
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metrics.snapshot()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for ev := range e.queue {
		for _, s := range e.sinks {
			if err := s.Deliver(context.Background(), ev); err != nil {
				redact.Logf("audit: sink %s failed: %v", s.Name(), err)
				e.metricsMu.Lock()
				e.metrics.sinkFailure[s.Name()]++
				e.metricsMu.Unlock()
				continue
			}
			e.metricsMu.Lock()
			e.metrics.sinkSuccess[s.Name()]++
			e.metricsMu.Unlock()
		}
	}
}
