// ring.go: fixed-capacity circular store of variable-length records
//
// Translated from the reference aesd-circular-buffer.c: an array of slots
// plus in/out cursors and a full flag, oldest-first logical ordering,
// overwrite-on-full eviction. See original_source/aesd-char-driver/
// aesd-circular-buffer.c for the algorithm this generalizes from a
// compile-time-sized C array to a runtime-sized Go slice (REDESIGN FLAG 1,
// DESIGN.md).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package aesdlogd

// ring is a fixed-capacity circular buffer of Records. It is not
// thread-safe; callers (the Store) must serialize access.
type ring struct {
	slots []*Record
	in    int
	out   int
	full  bool
}

// newRing creates an empty ring with the given capacity. Panics if cap < 1,
// mirroring the reference's compile-time AESDCHAR_MAX_WRITE_OPERATIONS_SUPPORTED
// invariant that capacity is always positive.
func newRing(capacity int) *ring {
	if capacity < 1 {
		panic("aesdlogd: ring capacity must be positive")
	}
	return &ring{slots: make([]*Record, capacity)}
}

// cap returns the ring's fixed capacity.
func (r *ring) cap() int {
	return len(r.slots)
}

// push adds rec to the ring, evicting the oldest record if the ring is
// full. Zero-length records are rejected without change. Returns the
// evicted record, if any, so the caller can drop its reference.
func (r *ring) push(rec Record) (evicted *Record, err error) {
	if rec.Empty() {
		return nil, ErrEmptyRecord
	}

	if r.full {
		evicted = r.slots[r.out]
		r.slots[r.out] = nil
		r.out = (r.out + 1) % r.cap()
	}

	cp := rec
	r.slots[r.in] = &cp
	r.in = (r.in + 1) % r.cap()
	r.full = r.in == r.out

	return evicted, nil
}

// locate walks slots starting at out, accumulating lengths, and returns the
// slot index and intra-slot byte offset addressed by charOffset in the
// logical oldest-first concatenation of stored records. ok is false if
// charOffset is beyond the total stored bytes (including on an empty ring).
func (r *ring) locate(charOffset int) (slot int, intraOffset int, ok bool) {
	if charOffset < 0 {
		return 0, 0, false
	}

	total := 0
	idx := r.out
	count := r.occupied()

	for i := 0; i < count; i++ {
		entry := r.slots[idx]
		last := total
		total += entry.Len()

		if charOffset < total {
			return idx, charOffset - last, true
		}

		idx = (idx + 1) % r.cap()
	}

	return 0, 0, false
}

// occupied returns the number of slots currently holding a record.
func (r *ring) occupied() int {
	if r.full {
		return r.cap()
	}
	return ((r.in - r.out) % r.cap() + r.cap()) % r.cap()
}

// totalBytes returns the sum of all occupied slots' lengths: the total
// virtual length of the logical concatenation.
func (r *ring) totalBytes() int {
	total := 0
	r.forEach(func(_ int, rec *Record) {
		if rec != nil {
			total += rec.Len()
		}
	})
	return total
}

// forEach visits every slot in physical order, including empty ones. Used
// by totalBytes and by tests; callers must not mutate the ring from within
// fn.
func (r *ring) forEach(fn func(slot int, rec *Record)) {
	for i, rec := range r.slots {
		fn(i, rec)
	}
}

// oldestFirst returns a fresh slice of the occupied records in logical
// (oldest-first) order. Used by Store.Snapshot.
func (r *ring) oldestFirst() []Record {
	count := r.occupied()
	out := make([]Record, 0, count)
	idx := r.out
	for i := 0; i < count; i++ {
		out = append(out, *r.slots[idx])
		idx = (idx + 1) % r.cap()
	}
	return out
}

// deinit releases every non-empty slot's record and resets the ring to its
// initial empty state.
func (r *ring) deinit() {
	for i := range r.slots {
		r.slots[i] = nil
	}
	r.in, r.out, r.full = 0, 0, false
}
