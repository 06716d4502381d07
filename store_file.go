// store_file.go: unbounded, file-backed ringStore for server-only mode
//
// Grounded on rotation.go's initFile/openLogFile/RetryFileOperation: open
// with create+retry, track the handle, append under the Store's lock. The
// bounded-retention contract (spec.md §4.1) does not apply here — this mode
// trades eviction for durability, per spec.md §6 and the Open Question
// resolution in DESIGN.md.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package aesdlogd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const fileBackedMode = os.O_CREATE | os.O_RDWR | os.O_APPEND

// fileRingStore implements ringStore over a single append-only file. No
// eviction is performed: the log grows until the file is closed and
// unlinked (spec.md §6, §9 "backing-file mode retention").
type fileRingStore struct {
	path string
	file *os.File
}

// newFileRingStore opens (creating if needed) the backing file at path with
// permissions 0766, matching spec.md §6 exactly. path is validated for
// length and its filename component sanitized before opening, since it
// commonly arrives from an external YAML config or CLI flag.
func newFileRingStore(path string) (*fileRingStore, error) {
	if err := ValidatePathLength(path); err != nil {
		return nil, fmt.Errorf("aesdlogd: backing file path: %w", err)
	}

	dir := filepath.Dir(path)
	safeName := SanitizeFilename(filepath.Base(path))
	path = filepath.Join(dir, safeName)

	var file *os.File
	err := RetryFileOperation(func() error {
		var openErr error
		file, openErr = os.OpenFile(path, fileBackedMode, 0766) // #nosec G304 -- path supplied by operator-controlled Config
		return openErr
	}, 3, defaultRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("aesdlogd: open backing file %q: %w", path, err)
	}

	return &fileRingStore{path: path, file: file}, nil
}

// push appends rec's bytes to the file. No eviction ever occurs in this
// mode, so the returned evicted record is always nil.
func (f *fileRingStore) push(rec Record) (*Record, error) {
	if rec.Empty() {
		return nil, ErrEmptyRecord
	}
	if _, err := f.file.Write(rec.Bytes()); err != nil {
		return nil, fmt.Errorf("aesdlogd: backing file write: %w", err)
	}
	return nil, nil
}

// read seeks to offset and reads up to maxLen bytes. ok is false once
// offset is at or beyond the current file size.
func (f *fileRingStore) read(offset int, maxLen int) ([]byte, bool) {
	info, err := f.file.Stat()
	if err != nil {
		return nil, false
	}
	if int64(offset) >= info.Size() {
		return nil, false
	}

	buf := make([]byte, maxLen)
	n, err := f.file.ReadAt(buf, int64(offset))
	if n == 0 && err != nil && err != io.EOF {
		return nil, false
	}
	return buf[:n], true
}

// oldestFirst reads the whole file back as a sequence of newline-terminated
// records, replaying via seek-to-0 + read-to-EOF per spec.md §6.
func (f *fileRingStore) oldestFirst() []Record {
	info, err := f.file.Stat()
	if err != nil {
		return nil
	}

	buf := make([]byte, info.Size())
	if _, err := f.file.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil
	}

	var records []Record
	start := 0
	for i, b := range buf {
		if b == '\n' {
			records = append(records, newRecord(buf[start:i+1]))
			start = i + 1
		}
	}
	return records
}

// totalBytes returns the current file size.
func (f *fileRingStore) totalBytes() int {
	info, err := f.file.Stat()
	if err != nil {
		return 0
	}
	return int(info.Size())
}

// close closes and unlinks the backing file, per spec.md §4.6.3's shutdown
// contract ("unlink the backing file").
func (f *fileRingStore) close() error {
	closeErr := f.file.Close()
	removeErr := os.Remove(f.path)
	if closeErr != nil {
		return fmt.Errorf("aesdlogd: close backing file: %w", closeErr)
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("aesdlogd: unlink backing file: %w", removeErr)
	}
	return nil
}

// NewFileStore creates a Store backed by an unbounded, append-only file at
// path (spec.md §6 backing-file mode).
func NewFileStore(path string) (*Store, error) {
	backend, err := newFileRingStore(path)
	if err != nil {
		return nil, err
	}
	return newStoreWithBackend(backend), nil
}
