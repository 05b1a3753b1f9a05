// Package progress provides in-memory pub/sub for pipeline progress events,
// with a per-run ring buffer for replay and an optional Redis Streams mirror.
package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fathomlabs/orchestrator/internal/models"
)

// Event is a single progress milestone attributed to a run.
type Event struct {
	RunID     string                 `json:"run_id"`
	Phase     models.ProgressPhase   `json:"phase"`
	Message   string                 `json:"message,omitempty"`
	Percent   int                    `json:"percent"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Seq       uint64                 `json:"seq"`
}

// Manager provides in-memory pub/sub for run progress events.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	// per-run ring buffer for replay support
	history  map[string]*ring
	capacity int
}

var (
	defaultMgr      *Manager
	once            sync.Once
	defaultCapacity = 256
)

// Get returns the global progress manager, initializing it lazily.
func Get() *Manager {
	once.Do(func() {
		defaultMgr = &Manager{
			subscribers: make(map[string]map[chan Event]struct{}),
			history:     make(map[string]*ring),
			capacity:    defaultCapacity,
		}
	})
	return defaultMgr
}

// Configure sets the ring capacity used for new runs. Safe to call anytime;
// existing rings keep their capacity.
func Configure(capacity int) {
	if capacity <= 0 {
		return
	}
	defaultCapacity = capacity
	if defaultMgr != nil {
		defaultMgr.mu.Lock()
		defaultMgr.capacity = capacity
		defaultMgr.mu.Unlock()
	}
}

// Subscribe adds a subscriber channel for a run; caller must drain and call
// Unsubscribe.
func (m *Manager) Subscribe(runID string, buffer int) chan Event {
	ch := make(chan Event, buffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscribers[runID]
	if subs == nil {
		subs = make(map[chan Event]struct{})
		m.subscribers[runID] = subs
	}
	subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes the subscriber channel and closes it.
func (m *Manager) Unsubscribe(runID string, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subs, ok := m.subscribers[runID]; ok {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(m.subscribers, runID)
		}
	}
}

// Publish sends an event to all subscribers of runID (non-blocking).
func (m *Manager) Publish(runID string, evt Event) {
	m.mu.Lock()
	rg := m.history[runID]
	if rg == nil {
		rg = newRing(m.capacity)
		m.history[runID] = rg
	}
	evt.Seq = rg.nextSeq
	rg.nextSeq++
	rg.push(evt)
	subs := m.subscribers[runID]
	m.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	for ch := range subs {
		select {
		case ch <- evt:
		default:
			// Drop if subscriber is slow
		}
	}
}

// Marshal returns JSON for event payloads in SSE or logs.
func (e Event) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

// ReplaySince returns events with Seq > since (best-effort within ring
// capacity).
func (m *Manager) ReplaySince(runID string, since uint64) []Event {
	m.mu.RLock()
	rg := m.history[runID]
	m.mu.RUnlock()
	if rg == nil {
		return nil
	}
	return rg.since(since)
}

// ring is a fixed-capacity ring buffer of events
type ring struct {
	buf     []Event
	start   int
	count   int
	nextSeq uint64
}

func newRing(capacity int) *ring { return &ring{buf: make([]Event, capacity)} }

func (r *ring) push(e Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	// overwrite oldest
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) since(seq uint64) []Event {
	if r.count == 0 {
		return nil
	}
	out := make([]Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		idx := (r.start + i) % len(r.buf)
		ev := r.buf[idx]
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}
