package syscalls

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/evanphx/atlantis/kernel"
	"github.com/evanphx/atlantis/memory"
)

// User-memory access for handlers. Everything goes through the current
// task's exclusive guard, released before any console io or switch.

// withSpace runs f with the current task's address space under guard.
func withSpace(k *kernel.Kernel, f func(space *memory.AddressSpace) error) error {
	inner, release := k.CurrentTask().ExclusiveInner()
	defer release()

	return f(inner.Space)
}

// userView snapshots the fragments backing [ptr, ptr+sz) under the
// guard. The fragments stay valid afterwards; nothing unmaps pages while
// the task is on the core.
func userView(k *kernel.Kernel, ptr, sz uint64, need memory.Perm) ([][]byte, error) {
	var frags [][]byte

	err := withSpace(k, func(space *memory.AddressSpace) error {
		var err error
		frags, err = space.View(ptr, sz, need)
		return err
	})

	return frags, err
}

// copyOut writes val into user memory at ptr, little-endian, the layout
// user code expects from the kernel.
func copyOut(k *kernel.Kernel, ptr uint64, val interface{}) error {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, val); err != nil {
		return err
	}

	frags, err := userView(k, ptr, uint64(buf.Len()), memory.PermWrite)
	if err != nil {
		return err
	}

	data := buf.Bytes()
	for _, frag := range frags {
		n := copy(frag, data)
		data = data[n:]
	}

	return nil
}

var errStringTooLong = errors.New("user string is not terminated")

// maxCString caps how far a string read walks user memory.
const maxCString = 4096

// readCString reads the NUL-terminated string at ptr.
func readCString(k *kernel.Kernel, ptr uint64) (string, error) {
	var out []byte

	err := withSpace(k, func(space *memory.AddressSpace) error {
		for len(out) < maxCString {
			tail, err := space.Translate(ptr)
			if err != nil {
				return err
			}

			if i := bytes.IndexByte(tail, 0); i >= 0 {
				out = append(out, tail[:i]...)
				return nil
			}

			out = append(out, tail...)
			ptr += uint64(len(tail))
		}

		return errors.Wrapf(errStringTooLong, "cap=%d", maxCString)
	})

	return string(out), err
}
