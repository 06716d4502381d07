// Package device exposes an [aesdlogd.Store] as a character-device-style
// handle: open/release/read/write with the locking discipline and error-kind
// mapping of a Linux char driver, minus the kernel registration glue (that
// part is out of scope — see aesdlogd/dev/aesdchar in the reference driver).
//
// Position is owned by the caller, exactly as a kernel char driver leaves
// *pos in struct file: Device never tracks it itself.
package device

import (
	"context"
	"errors"
	"io"

	"github.com/aesdlogd/aesdlogd"
)

// ErrInterrupted is returned when lock acquisition is cancelled via the
// caller's context before it is granted — a retry signal, not fatal. The
// reference driver's other failure mode, a copy_to_user/copy_from_user
// fault, has no analogue here: Store.Read is bounded by len(buf) itself,
// so the copy into buf can never fall short.
var ErrInterrupted = aesdlogd.ErrInterrupted

// Device is a single open handle onto the shared Store. It holds no
// per-handle position; callers track their own offset, matching the
// reference's per-file-struct pos field.
type Device struct {
	store *aesdlogd.Store
}

// Open associates a new handle with the given Store. There is no per-handle
// setup beyond recording the pointer — the reference driver's open() does
// the same (container_of + store the device pointer in private_data).
func Open(store *aesdlogd.Store) *Device {
	return &Device{store: store}
}

// Release performs no action, matching the reference driver's release().
func (d *Device) Release() error {
	return nil
}

// Read copies bytes starting at virtual offset pos into buf, returning the
// count copied. If ctx is already cancelled when Read is called, it returns
// (0, ErrInterrupted) as a retry signal rather than a fatal error. The wait
// for the Store lock itself is not interruptible: once Read has called into
// the Store, a later cancellation of ctx has no effect. Zero bytes with a nil
// error signals end-of-log.
func (d *Device) Read(ctx context.Context, buf []byte, pos int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrInterrupted
	}

	data, err := d.store.Read(pos, len(buf))
	if err != nil {
		if errors.Is(err, aesdlogd.ErrClosed) {
			return 0, io.EOF
		}
		return 0, err
	}

	return copy(buf, data), nil
}

// Write copies bytes from buf into the Store as a feed to the Assembler.
// Once the write reaches the Store, *pos is reset to 0: the device does not
// track a write position, matching the reference driver's write() contract.
// If ctx is already cancelled, it returns (0, ErrInterrupted) with the same
// lock caveat as Read, and *pos is left unchanged.
func (d *Device) Write(ctx context.Context, buf []byte, pos *int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrInterrupted
	}

	n, err := d.store.Write(buf)
	*pos = 0
	if err != nil {
		return n, err
	}
	return n, nil
}
