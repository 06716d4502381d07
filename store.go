// store.go: mutex-guarded facade over a record ring and the Assembler
//
// Grounded on lethe.go's Logger.Write (single entry point serialized by one
// lock) generalized from "append bytes to a rotating file" to "assemble a
// newline record, push it into a bounded ring, and serve virtual-offset
// reads back out."
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package aesdlogd

import (
	"fmt"
	"sync"
)

// ringStore is the storage backend a Store delegates to: either the bounded
// in-memory ring (spec.md §4.1) or the unbounded backing file of §6. Both
// implementations share this interface so Store.Write/Read/AppendRecord
// have one body regardless of mode.
type ringStore interface {
	push(rec Record) (evicted *Record, err error)
	read(offset int, maxLen int) (data []byte, ok bool)
	oldestFirst() []Record
	totalBytes() int
	close() error
}

// memRingStore adapts *ring to the ringStore interface for the default,
// bounded, in-memory mode.
type memRingStore struct {
	r *ring
}

func newMemRingStore(capacity int) *memRingStore {
	return &memRingStore{r: newRing(capacity)}
}

func (m *memRingStore) push(rec Record) (*Record, error) { return m.r.push(rec) }

func (m *memRingStore) read(offset int, maxLen int) ([]byte, bool) {
	slot, intra, ok := m.r.locate(offset)
	if !ok {
		return nil, false
	}

	rec := m.r.slots[slot]
	b := rec.Bytes()
	end := intra + maxLen
	if end > len(b) {
		end = len(b)
	}
	out := make([]byte, end-intra)
	copy(out, b[intra:end])
	return out, true
}

func (m *memRingStore) oldestFirst() []Record { return m.r.oldestFirst() }

func (m *memRingStore) totalBytes() int { return m.r.totalBytes() }

func (m *memRingStore) close() error {
	m.r.deinit()
	return nil
}

// Store composes a ringStore and an Assembler behind one mutex, and
// exposes the virtual byte offset view across the logical concatenation of
// stored records, oldest first.
type Store struct {
	mu     sync.Mutex
	ring   ringStore
	asm    assembler
	closed bool
}

// NewStore creates a Store backed by a bounded in-memory ring of the given
// capacity (spec.md §4.1–§4.3, default mode).
func NewStore(capacity int) *Store {
	return &Store{ring: newMemRingStore(capacity)}
}

// newStoreWithBackend is used by tests and by the file-backed constructor
// (store_file.go) to inject an alternate ringStore implementation.
func newStoreWithBackend(backend ringStore) *Store {
	return &Store{ring: backend}
}

// Write feeds bytes to the Assembler; if a complete record results, it is
// pushed into the ring (any evicted record is dropped). Returns the number
// of bytes consumed, which is always len(b) — partial consumption is not
// modeled, matching spec.md §4.3.
func (s *Store) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	if rec, ok := s.asm.feed(b); ok {
		if _, err := s.ring.push(rec); err != nil {
			// Empty records cannot occur here: feed() only emits a
			// Record when it has split on a newline, which is always
			// length >= 1 (the newline itself).
			return 0, fmt.Errorf("aesdlogd: store write: %w", err)
		}
	}

	return len(b), nil
}

// AppendRecord bypasses the Assembler and pushes a synthetic, already
// complete record — used by the Timer task. b must end in a newline.
func (s *Store) AppendRecord(b []byte) error {
	if len(b) == 0 || b[len(b)-1] != '\n' {
		return ErrNotNewlineTerminated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, err := s.ring.push(newRecord(b))
	return err
}

// Read returns up to maxLen bytes from the record addressed by the virtual
// byte offset, starting at the offset within that record. Each call
// returns at most one record's tail; callers advance offset by the
// returned length and re-read to stream the full log. Returns an empty
// slice once offset reaches the end of the log.
func (s *Store) Read(offset int, maxLen int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	data, ok := s.ring.read(offset, maxLen)
	if !ok {
		return nil, nil
	}

	return data, nil
}

// Snapshot returns a copy of all currently stored records in oldest-first
// order. Convenience API alongside the streaming Read, used by tests; the
// connection worker's replay phase streams through Read instead.
func (s *Store) Snapshot() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	return s.ring.oldestFirst(), nil
}

// TotalBytes returns the current total virtual length of the store.
func (s *Store) TotalBytes() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	return s.ring.totalBytes(), nil
}

// Close releases the underlying ring/file resources. Subsequent operations
// return ErrClosed; calling Close again is a no-op that returns nil.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.ring.close()
}
