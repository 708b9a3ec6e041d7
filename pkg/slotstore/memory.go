package slotstore

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryOptions tunes a Memory store.
type MemoryOptions struct {
	MaxBytes uint64 // hard limit on stored payload bytes (0 = none)
}

// Memory is an in-process Store. Payloads are copied on the way in and on
// the way out. Expired slots are dropped lazily on access and by a
// background sweeper.
type Memory struct {
	opts MemoryOptions

	mu    sync.Mutex
	slots map[string]*entry
	expq  expQueue
	bytes uint64

	nowFn   func() time.Time
	wake    chan struct{}
	closeCh chan struct{}
	closed  atomic.Bool
	wg      sync.WaitGroup

	mPuts    atomic.Uint64
	mPeeks   atomic.Uint64
	mTakes   atomic.Uint64
	mHits    atomic.Uint64
	mMisses  atomic.Uint64
	mDeletes atomic.Uint64
	mExpired atomic.Uint64
}

type entry struct {
	val      []byte
	expireAt int64 // unix nano; 0 = no expiry
}

var _ Store = (*Memory)(nil)

// NewMemory starts a store and its sweeper. Call Close to stop it.
func NewMemory(opts MemoryOptions) *Memory {
	m := &Memory{
		opts:    opts,
		slots:   make(map[string]*entry),
		nowFn:   time.Now,
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	heap.Init(&m.expq)
	m.wg.Add(1)
	go m.sweeper()
	return m
}

// Close stops the sweeper. Further calls fail with ErrClosed.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	close(m.closeCh)
	m.wg.Wait()
	return nil
}

func (m *Memory) check(slot string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if slot == "" {
		return ErrEmptySlot
	}
	return nil
}

// Put stores a copy of payload, replacing whatever the slot held.
func (m *Memory) Put(_ context.Context, slot string, payload []byte, ttl time.Duration) error {
	if err := m.check(slot); err != nil {
		return err
	}
	now := m.nowFn()
	e := &entry{val: append([]byte(nil), payload...), expireAt: expiry(now, ttl)}

	m.mu.Lock()
	defer m.mu.Unlock()
	prev := uint64(0)
	if old, ok := m.slots[slot]; ok {
		prev = uint64(len(old.val))
	}
	next := m.bytes - prev + uint64(len(e.val))
	if m.opts.MaxBytes > 0 && next > m.opts.MaxBytes {
		return ErrTooLarge
	}
	m.slots[slot] = e
	m.bytes = next
	m.mPuts.Add(1)
	if e.expireAt != 0 {
		heap.Push(&m.expq, &expItem{when: e.expireAt, slot: slot})
		select {
		case m.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Peek returns a copy of the slot's payload without removing it.
func (m *Memory) Peek(_ context.Context, slot string) ([]byte, bool, error) {
	if err := m.check(slot); err != nil {
		return nil, false, err
	}
	m.mPeeks.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(slot)
	if e == nil {
		m.mMisses.Add(1)
		return nil, false, nil
	}
	m.mHits.Add(1)
	return append([]byte(nil), e.val...), true, nil
}

// Take returns the slot's payload and empties the slot in one step.
func (m *Memory) Take(_ context.Context, slot string) ([]byte, bool, error) {
	if err := m.check(slot); err != nil {
		return nil, false, err
	}
	m.mTakes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(slot)
	if e == nil {
		m.mMisses.Add(1)
		return nil, false, nil
	}
	m.remove(slot, e)
	m.mHits.Add(1)
	return e.val, true, nil
}

// Delete empties the slot and reports whether it held a payload.
func (m *Memory) Delete(_ context.Context, slot string) (bool, error) {
	if err := m.check(slot); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(slot)
	if e == nil {
		return false, nil
	}
	m.remove(slot, e)
	m.mDeletes.Add(1)
	return true, nil
}

// TTL returns the time left before the slot expires. A slot without expiry
// reports 0 and true.
func (m *Memory) TTL(slot string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(slot)
	if e == nil {
		return 0, false
	}
	if e.expireAt == 0 {
		return 0, true
	}
	return time.Duration(e.expireAt - m.nowFn().UnixNano()), true
}

// Metrics returns a snapshot of the counters.
func (m *Memory) Metrics() Stats {
	m.mu.Lock()
	slots, bytes := uint64(len(m.slots)), m.bytes
	m.mu.Unlock()
	return Stats{
		Slots:   slots,
		Bytes:   bytes,
		Puts:    m.mPuts.Load(),
		Peeks:   m.mPeeks.Load(),
		Takes:   m.mTakes.Load(),
		Hits:    m.mHits.Load(),
		Misses:  m.mMisses.Load(),
		Deletes: m.mDeletes.Load(),
		Expired: m.mExpired.Load(),
	}
}

// live returns the slot's entry, dropping it first if it has expired.
// Caller holds mu.
func (m *Memory) live(slot string) *entry {
	e, ok := m.slots[slot]
	if !ok {
		return nil
	}
	if expired(e.expireAt, m.nowFn()) {
		m.remove(slot, e)
		m.mExpired.Add(1)
		return nil
	}
	return e
}

// remove drops slot and its byte count. Caller holds mu.
func (m *Memory) remove(slot string, e *entry) {
	delete(m.slots, slot)
	m.bytes -= uint64(len(e.val))
}

// sweep drops every slot whose deadline has passed and returns the time
// until the next pending deadline, or 0 when none is queued.
func (m *Memory) sweep() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFn().UnixNano()
	for m.expq.Len() > 0 {
		it := m.expq.items[0]
		if it.when > now {
			return time.Duration(it.when - now)
		}
		heap.Pop(&m.expq)
		// the slot may have been overwritten with a later deadline
		if e, ok := m.slots[it.slot]; ok && e.expireAt == it.when {
			m.remove(it.slot, e)
			m.mExpired.Add(1)
		}
	}
	return 0
}

func (m *Memory) sweeper() {
	defer m.wg.Done()
	for {
		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		if wait := m.sweep(); wait > 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}
		select {
		case <-fire:
		case <-m.wake:
		case <-m.closeCh:
		}
		if timer != nil {
			timer.Stop()
		}
		if m.closed.Load() {
			return
		}
	}
}

// ========================= expiry queue =========================

type expItem struct {
	when int64
	slot string
}

type expQueue struct{ items []*expItem }

func (q expQueue) Len() int           { return len(q.items) }
func (q expQueue) Less(i, j int) bool { return q.items[i].when < q.items[j].when }
func (q expQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *expQueue) Push(x any)        { q.items = append(q.items, x.(*expItem)) }
func (q *expQueue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return it
}
