// Package memory implements the per-task address space: page-granular
// anonymous mappings plus the satp-shaped token the rest of the kernel
// names the space by.
package memory

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/evanphx/atlantis/abi"
)

// Perm is the permission bits of a mapping, the low three bits of the
// mmap port argument.
type Perm uint8

const (
	PermRead  Perm = abi.ProtRead
	PermWrite Perm = abi.ProtWrite
	PermExec  Perm = abi.ProtExec
)

func (p Perm) Has(need Perm) bool {
	return p&need == need
}

// UserTop is the first address past the usable user address space.
const UserTop uint64 = 1 << 38

// page is one mapped frame plus the bits it was mapped with.
type page struct {
	perm Perm
	data []byte
}

// AddressSpace is the memory image of one task, keyed by virtual page
// number. It is reached only through the owning task's exclusive guard,
// so it does no locking of its own.
type AddressSpace struct {
	token uint64
	pages map[uint64]*page
}

// satp-shaped tokens: Sv39 mode in the top nibble, a fake root frame
// below it. The base keeps tokens looking like frames past the kernel.
const (
	satpSv39 = uint64(8) << 60
	rootBase = 0x80240
)

var nextRoot uint64

func New() *AddressSpace {
	return &AddressSpace{
		token: satpSv39 | (rootBase + atomic.AddUint64(&nextRoot, 1)),
		pages: make(map[uint64]*page),
	}
}

// Token returns the value user-mode code is named by while this space is
// active. Tokens are unique per space and stable for its lifetime.
func (as *AddressSpace) Token() uint64 {
	return as.token
}

// MappedBytes reports the total size of all live mappings.
func (as *AddressSpace) MappedBytes() uint64 {
	return uint64(len(as.pages)) * abi.PageSize
}

var (
	ErrMisaligned = errors.New("address is not page aligned")
	ErrZeroLength = errors.New("zero length range")
	ErrOutOfRange = errors.New("range extends past the user address space")
	ErrBadPort    = errors.New("bad permission bits")
	ErrOverlap    = errors.New("range overlaps an existing mapping")
)

func checkRange(start, length uint64) error {
	if start%abi.PageSize != 0 {
		return errors.Wrapf(ErrMisaligned, "start=%x", start)
	}

	if length == 0 {
		return errors.Wrapf(ErrZeroLength, "start=%x", start)
	}

	if start >= UserTop || length > UserTop-start {
		return errors.Wrapf(ErrOutOfRange, "start=%x length=%x", start, length)
	}

	return nil
}

func pageSpan(start, length uint64) (uint64, uint64) {
	first := start / abi.PageSize
	last := (start + length + abi.PageSize - 1) / abi.PageSize

	return first, last
}

// Mmap installs zero-filled pages covering [start, start+length) with the
// permission bits in port. It either maps the whole range or, on any
// failure, changes nothing.
func (as *AddressSpace) Mmap(start, length, port uint64) error {
	if err := checkRange(start, length); err != nil {
		return err
	}

	if port&^uint64(abi.ProtMask) != 0 || port&uint64(abi.ProtMask) == 0 {
		return errors.Wrapf(ErrBadPort, "port=%x", port)
	}

	first, last := pageSpan(start, length)

	for vpn := first; vpn < last; vpn++ {
		if _, ok := as.pages[vpn]; ok {
			return errors.Wrapf(ErrOverlap, "page=%x", vpn*abi.PageSize)
		}
	}

	for vpn := first; vpn < last; vpn++ {
		as.pages[vpn] = &page{
			perm: Perm(port),
			data: make([]byte, abi.PageSize),
		}
	}

	return nil
}

var ErrNotMapped = errors.New("range is not fully mapped")

// Munmap removes the pages covering [start, start+length). Every page in
// the range must be mapped; a partial range fails without unmapping
// anything.
func (as *AddressSpace) Munmap(start, length uint64) error {
	if err := checkRange(start, length); err != nil {
		return err
	}

	first, last := pageSpan(start, length)

	for vpn := first; vpn < last; vpn++ {
		if _, ok := as.pages[vpn]; !ok {
			return errors.Wrapf(ErrNotMapped, "page=%x", vpn*abi.PageSize)
		}
	}

	for vpn := first; vpn < last; vpn++ {
		delete(as.pages, vpn)
	}

	return nil
}

// Translate resolves addr to the mapped bytes from addr to the end of its
// page. The slice aliases the mapping.
func (as *AddressSpace) Translate(addr uint64) ([]byte, error) {
	pg, ok := as.pages[addr/abi.PageSize]
	if !ok {
		return nil, errors.Wrapf(ErrNotMapped, "addr=%x", addr)
	}

	return pg.data[addr%abi.PageSize:], nil
}

var ErrBadAccess = errors.New("mapping does not permit access")

// View returns the mapped bytes backing [addr, addr+length), one fragment
// per page crossed, after checking every page carries the needed
// permission bits. The fragments alias the mapping, so writes land in it.
func (as *AddressSpace) View(addr, length uint64, need Perm) ([][]byte, error) {
	if length == 0 {
		return nil, nil
	}

	if addr >= UserTop || length > UserTop-addr {
		return nil, errors.Wrapf(ErrOutOfRange, "addr=%x length=%x", addr, length)
	}

	var frags [][]byte

	for length > 0 {
		pg, ok := as.pages[addr/abi.PageSize]
		if !ok {
			return nil, errors.Wrapf(ErrNotMapped, "addr=%x", addr)
		}

		if !pg.perm.Has(need) {
			return nil, errors.Wrapf(ErrBadAccess, "addr=%x have=%x need=%x", addr, pg.perm, need)
		}

		offset := addr % abi.PageSize

		n := abi.PageSize - offset
		if n > length {
			n = length
		}

		frags = append(frags, pg.data[offset:offset+n])

		addr += n
		length -= n
	}

	return frags, nil
}

// Populate copies data into the mapping at addr, ignoring permission
// bits. It is the loader's path for seeding segments before the task
// first runs.
func (as *AddressSpace) Populate(addr uint64, data []byte) error {
	for len(data) > 0 {
		pg, ok := as.pages[addr/abi.PageSize]
		if !ok {
			return errors.Wrapf(ErrNotMapped, "addr=%x", addr)
		}

		offset := addr % abi.PageSize

		n := copy(pg.data[offset:], data)

		data = data[n:]
		addr += uint64(n)
	}

	return nil
}
