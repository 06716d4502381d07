// assembler.go: joins partial writes into newline-terminated records
//
// Shape grounded on sakateka-yanet2's modules/pdump/controlplane/ring.go
// workerArea.read: accumulate into a growable buffer, scan for a complete
// frame, slice it off, retain the remainder for the next call. There the
// frame boundary is a length-prefixed header; here it is a single newline
// byte (spec.md §4.2).
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package aesdlogd

import "bytes"

// assembler accumulates successive partial writes into one Record, flushing
// when a newline is observed. Not thread-safe; the Store serializes access.
type assembler struct {
	buf []byte
}

// feed appends data to the internal buffer and scans for the first newline.
// If none is found, it returns (Record{}, false) and retains all of data as
// pending state. If one is found at position p, the prefix buf[:p+1]
// (newline included) is detached as a Record and the remainder retained as
// the new buffer contents — one Record emitted per feed, per the Open
// Question resolution in DESIGN.md.
func (a *assembler) feed(data []byte) (Record, bool) {
	a.buf = append(a.buf, data...)

	p := bytes.IndexByte(a.buf, '\n')
	if p < 0 {
		return Record{}, false
	}

	rec := newRecord(a.buf[:p+1])

	remainder := len(a.buf) - (p + 1)
	if remainder > 0 {
		copy(a.buf, a.buf[p+1:])
	}
	a.buf = a.buf[:remainder]

	return rec, true
}

// reset discards any pending (incomplete) buffer contents.
func (a *assembler) reset() {
	a.buf = a.buf[:0]
}

// pending returns the number of bytes currently buffered but not yet a
// complete record. Used by diagnostics and tests.
func (a *assembler) pending() int {
	return len(a.buf)
}
