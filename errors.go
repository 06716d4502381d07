// errors.go: sentinel errors for component boundaries
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package aesdlogd

import "errors"

var (
	// ErrEmptyRecord is returned when a caller attempts to push a
	// zero-length or nil record into the ring. The ring is left unchanged.
	ErrEmptyRecord = errors.New("aesdlogd: empty record rejected")

	// ErrInterrupted is returned by the device front-end when the caller's
	// context is already cancelled at the time of the call. Callers should
	// retry the operation.
	ErrInterrupted = errors.New("aesdlogd: operation interrupted, retry")

	// ErrClosed is returned by operations attempted after the owning
	// Store or Device has been closed.
	ErrClosed = errors.New("aesdlogd: store closed")

	// ErrNotNewlineTerminated is returned by AppendRecord when the caller
	// supplies a synthetic record that does not end in a newline.
	ErrNotNewlineTerminated = errors.New("aesdlogd: record must end in newline")
)
