// record.go: the unit of storage in the bounded log
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package aesdlogd

// Record is an owned, immutable byte sequence together with its length.
// Once published into a Ring, a Record's bytes are never mutated in place;
// replacement happens only by eviction.
type Record struct {
	buf []byte
}

// newRecord copies b into a freshly owned Record. The caller's slice may be
// reused or mutated after this call returns.
func newRecord(b []byte) Record {
	owned := make([]byte, len(b))
	copy(owned, b)
	return Record{buf: owned}
}

// Bytes returns the record's owned byte slice. Callers must not mutate it.
func (r Record) Bytes() []byte {
	return r.buf
}

// Len returns the number of bytes in the record.
func (r Record) Len() int {
	return len(r.buf)
}

// Empty reports whether the record carries no payload.
func (r Record) Empty() bool {
	return len(r.buf) == 0
}
