package slotstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	mem := NewMemory(MemoryOptions{})
	t.Cleanup(func() {
		sq.Close()
		mem.Close()
	})
	return map[string]Store{"memory": mem, "sqlite": sq}
}

func TestTakeAtMostOnce(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		if err := s.Put(ctx, "com.appigo.pasteboard.task", []byte("A"), 0); err != nil {
			t.Fatalf("%s: put: %v", name, err)
		}
		v, ok, err := s.Take(ctx, "com.appigo.pasteboard.task")
		if err != nil || !ok || string(v) != "A" {
			t.Fatalf("%s: take mismatch: ok=%v v=%q err=%v", name, ok, v, err)
		}
		if _, ok, _ := s.Take(ctx, "com.appigo.pasteboard.task"); ok {
			t.Fatalf("%s: second take must find the slot empty", name)
		}
	}
}

func TestLastWriterWins(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		s.Put(ctx, "slot", []byte("first"), 0)
		s.Put(ctx, "slot", []byte("second"), 0)
		v, ok, err := s.Peek(ctx, "slot")
		if err != nil || !ok || string(v) != "second" {
			t.Fatalf("%s: peek mismatch: ok=%v v=%q err=%v", name, ok, v, err)
		}
		// peek leaves the slot in place
		if _, ok, _ := s.Take(ctx, "slot"); !ok {
			t.Fatalf("%s: expected payload after peek", name)
		}
	}
}

func TestSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		s.Put(ctx, "a", []byte("1"), 0)
		s.Put(ctx, "b", []byte("2"), 0)
		if ok, err := s.Delete(ctx, "a"); err != nil || !ok {
			t.Fatalf("%s: delete a: ok=%v err=%v", name, ok, err)
		}
		if ok, _ := s.Delete(ctx, "a"); ok {
			t.Fatalf("%s: second delete must report false", name)
		}
		if v, ok, _ := s.Take(ctx, "b"); !ok || string(v) != "2" {
			t.Fatalf("%s: slot b disturbed: ok=%v v=%q", name, ok, v)
		}
	}
}

func TestEmptySlotName(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		if err := s.Put(ctx, "", []byte("x"), 0); err != ErrEmptySlot {
			t.Fatalf("%s: expected ErrEmptySlot, got %v", name, err)
		}
	}
}

func TestExpiryWithClock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	mem := NewMemory(MemoryOptions{})
	defer mem.Close()
	mem.mu.Lock()
	mem.nowFn = clock
	mem.mu.Unlock()

	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sq.Close()
	sq.nowFn = clock

	for _, s := range []Store{mem, sq} {
		s.Put(ctx, "short", []byte("v"), time.Minute)
		s.Put(ctx, "forever", []byte("v"), 0)
	}
	mem.mu.Lock()
	now = now.Add(2 * time.Minute)
	mem.mu.Unlock()
	for name, s := range map[string]Store{"memory": mem, "sqlite": sq} {
		if _, ok, _ := s.Peek(ctx, "short"); ok {
			t.Fatalf("%s: expected short slot expired", name)
		}
		if _, ok, _ := s.Take(ctx, "forever"); !ok {
			t.Fatalf("%s: slot without ttl must survive", name)
		}
	}
	if st := mem.Metrics(); st.Expired != 1 {
		t.Fatalf("expected Expired=1, got %d", st.Expired)
	}
}

func TestMemorySweeper(t *testing.T) {
	s := NewMemory(MemoryOptions{})
	defer s.Close()
	ctx := context.Background()

	s.Put(ctx, "k", []byte("v"), 30*time.Millisecond)
	if d, ok := s.TTL("k"); !ok || d <= 0 {
		t.Fatalf("TTL should be >0 and ok, got %v %v", d, ok)
	}
	time.Sleep(120 * time.Millisecond)
	st := s.Metrics()
	if st.Slots != 0 || st.Expired != 1 {
		t.Fatalf("sweeper did not drop slot: Slots=%d Expired=%d", st.Slots, st.Expired)
	}
}

func TestMemoryCopiesPayload(t *testing.T) {
	s := NewMemory(MemoryOptions{})
	defer s.Close()
	ctx := context.Background()

	in := []byte("abc")
	s.Put(ctx, "k", in, 0)
	in[0] = 'X'
	v, _, _ := s.Peek(ctx, "k")
	if string(v) != "abc" {
		t.Fatalf("store must copy on Put, got %q", v)
	}
	v[0] = 'Y'
	v2, _, _ := s.Peek(ctx, "k")
	if string(v2) != "abc" {
		t.Fatalf("store must copy on Peek, got %q", v2)
	}
}

func TestMemoryMaxBytes(t *testing.T) {
	s := NewMemory(MemoryOptions{MaxBytes: 64})
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, "a", bytes.Repeat([]byte{'x'}, 50), 0); err != nil {
		t.Fatalf("expected initial Put to succeed: %v", err)
	}
	if err := s.Put(ctx, "b", bytes.Repeat([]byte{'y'}, 20), 0); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	// replacing a slot only counts the difference
	if err := s.Put(ctx, "a", bytes.Repeat([]byte{'z'}, 60), 0); err != nil {
		t.Fatalf("replace within limit rejected: %v", err)
	}
	st := s.Metrics()
	if st.Bytes != 60 || st.Slots != 1 {
		t.Fatalf("metrics mismatch: Bytes=%d Slots=%d", st.Bytes, st.Slots)
	}
}

func TestMemoryMetrics(t *testing.T) {
	s := NewMemory(MemoryOptions{})
	defer s.Close()
	ctx := context.Background()

	s.Put(ctx, "a", []byte("123"), 0)
	s.Put(ctx, "b", []byte("5"), 0)
	s.Peek(ctx, "a")
	s.Peek(ctx, "missing")
	s.Take(ctx, "b")
	s.Delete(ctx, "a")

	st := s.Metrics()
	if st.Slots != 0 || st.Bytes != 0 {
		t.Fatalf("expected empty store, got Slots=%d Bytes=%d", st.Slots, st.Bytes)
	}
	if st.Puts != 2 || st.Peeks != 2 || st.Takes != 1 || st.Deletes != 1 {
		t.Fatalf("Puts/Peeks/Takes/Deletes mismatch: %d/%d/%d/%d", st.Puts, st.Peeks, st.Takes, st.Deletes)
	}
	if st.Hits != 2 || st.Misses != 1 {
		t.Fatalf("Hits/Misses mismatch: %d/%d", st.Hits, st.Misses)
	}
}

func TestMemoryClosed(t *testing.T) {
	s := NewMemory(MemoryOptions{})
	s.Close()
	if err := s.Put(context.Background(), "k", nil, 0); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSQLiteSharedBetweenHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	producer, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open producer: %v", err)
	}
	defer producer.Close()
	consumer, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open consumer: %v", err)
	}
	defer consumer.Close()

	if err := producer.Put(ctx, "com.appigo.pasteboard.note", []byte("note"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, ok, err := consumer.Take(ctx, "com.appigo.pasteboard.note")
	if err != nil || !ok || string(v) != "note" {
		t.Fatalf("take across handles: ok=%v v=%q err=%v", ok, v, err)
	}
	if _, ok, _ := producer.Peek(ctx, "com.appigo.pasteboard.note"); ok {
		t.Fatalf("slot must be empty for the producer after take")
	}

	producer.nowFn = func() time.Time { return time.Now().Add(-time.Hour) }
	producer.Put(ctx, "old", []byte("x"), time.Minute)
	n, err := consumer.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep: n=%d err=%v", n, err)
	}
}
