package shmstate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
)

// EventOp labels a lifecycle transition recorded on the event trail.
type EventOp string

const (
	EventSubscribe     EventOp = "subscribe"
	EventUnsubscribe   EventOp = "unsubscribe"
	EventSegmentCreate EventOp = "segment-create"
	EventTxnStart      EventOp = "transaction-start"
	EventTxnAbort      EventOp = "transaction-abort"
	EventTxnCommit     EventOp = "transaction-commit"
)

// Event is one recorded lifecycle transition.
type Event struct {
	Op   EventOp
	Name string // state name as reported by Name()
	ID   string // subscription uuid or transaction id
	At   time.Time
}

// EventTrailConfig sizes the process event trail.
type EventTrailConfig struct {
	// Capacity bounds the in-memory trail. When the trail is full new
	// events are dropped and counted, never blocked on. Default 1024.
	Capacity uint64
	// Workers bounds the listener dispatch pool. Default 4.
	Workers int
}

type eventTrail struct {
	ring *queue.RingBuffer
	pool *ants.Pool

	mu        sync.RWMutex
	listeners []func(Event)

	dropped uint64
}

var (
	defaultTrail     *eventTrail
	defaultTrailOnce sync.Once
)

func ensureDefaultTrailInit() {
	defaultTrailOnce.Do(func() {
		t, err := newEventTrail(EventTrailConfig{})
		if err != nil {
			internalLogger.errorf("event trail init failed: %v", err)
			return
		}
		defaultTrail = t
	})
}

func newEventTrail(cfg EventTrailConfig) (*eventTrail, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &eventTrail{
		ring: queue.NewRingBuffer(cfg.Capacity),
		pool: pool,
	}, nil
}

func (t *eventTrail) record(e Event) {
	if t == nil {
		return
	}
	if ok, err := t.ring.Offer(e); err != nil || !ok {
		atomic.AddUint64(&t.dropped, 1)
	}
	if debugMode {
		trailLogger.debugf("%s name=%s id=%s", e.Op, e.Name, e.ID)
	}
	t.mu.RLock()
	listeners := t.listeners
	t.mu.RUnlock()
	for _, fn := range listeners {
		fn := fn
		if err := t.pool.Submit(func() { fn(e) }); err != nil {
			// Pool saturated or released: deliver on the caller.
			fn(e)
		}
	}
}

func (t *eventTrail) subscribe(fn func(Event)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *eventTrail) drain(max int) []Event {
	if t == nil || max <= 0 {
		return nil
	}
	out := make([]Event, 0, max)
	for len(out) < max {
		item, err := t.ring.Poll(time.Millisecond)
		if err != nil {
			break
		}
		if e, ok := item.(Event); ok {
			out = append(out, e)
		}
	}
	return out
}

// recordLifecycleEvent is the hook used by the subscription and transaction
// lifecycles.
func recordLifecycleEvent(op EventOp, name, id string) {
	ensureDefaultTrailInit()
	defaultTrail.record(Event{Op: op, Name: name, ID: id, At: time.Now()})
}

// RecordEvent appends a caller-supplied event to the process trail. A zero
// At timestamp is filled in.
func RecordEvent(e Event) {
	ensureDefaultTrailInit()
	if e.At.IsZero() {
		e.At = time.Now()
	}
	defaultTrail.record(e)
}

// OnEvent registers fn to run for every subsequent trail event. Callbacks
// run on a small shared worker pool and must not block.
func OnEvent(fn func(Event)) {
	ensureDefaultTrailInit()
	if defaultTrail == nil {
		return
	}
	defaultTrail.subscribe(fn)
}

// TrailEvents drains and returns up to max recorded events, oldest first.
func TrailEvents(max int) []Event {
	ensureDefaultTrailInit()
	return defaultTrail.drain(max)
}

// TrailDropped reports how many events were lost to a full trail.
func TrailDropped() uint64 {
	ensureDefaultTrailInit()
	if defaultTrail == nil {
		return 0
	}
	return atomic.LoadUint64(&defaultTrail.dropped)
}
