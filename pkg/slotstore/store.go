// Package slotstore holds published archives under named slots until a host
// takes them or they expire. Two stores are provided: Memory for handoff
// inside one process and SQLite for handoff between processes on one
// machine.
package slotstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTooLarge is returned by Put when the payload would exceed the
	// store's byte limit.
	ErrTooLarge = errors.New("slotstore: payload exceeds store limit")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("slotstore: store closed")
	// ErrEmptySlot is returned for an empty slot name.
	ErrEmptySlot = errors.New("slotstore: empty slot name")
)

// Store is a named byte mailbox. Put overwrites (last writer wins) and Take
// removes atomically, so each published payload is taken at most once.
// A ttl of zero keeps the payload until it is taken or deleted.
type Store interface {
	Put(ctx context.Context, slot string, payload []byte, ttl time.Duration) error
	Peek(ctx context.Context, slot string) ([]byte, bool, error)
	Take(ctx context.Context, slot string) ([]byte, bool, error)
	Delete(ctx context.Context, slot string) (bool, error)
	Close() error
}

// Stats is a snapshot of store counters.
type Stats struct {
	Slots   uint64
	Bytes   uint64
	Puts    uint64
	Peeks   uint64
	Takes   uint64
	Hits    uint64
	Misses  uint64
	Deletes uint64
	Expired uint64
}

func expiry(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}

func expired(expireAt int64, now time.Time) bool {
	return expireAt != 0 && expireAt <= now.UnixNano()
}
