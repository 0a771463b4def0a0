// Package loader parses flat app images and places them into a fresh
// address space. An image is the whole of a user program: an entry point,
// a stack request, and the segments to map.
package loader

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/evanphx/atlantis/abi"
	"github.com/evanphx/atlantis/memory"
)

// Flat image layout, little-endian: imageHeader, then Segments many
// segmentHeader+data runs.
const (
	imageMagic   = 0x314c5441 // "ATL1"
	imageVersion = 1
)

type imageHeader struct {
	Magic      uint32
	Version    uint16
	Segments   uint16
	Entry      uint64
	StackPages uint32
	_          uint32
}

type segmentHeader struct {
	Vaddr   uint64
	MemSize uint64
	Port    uint32
	DataLen uint32
}

// Segment is one mappable run of an image. MemSize may exceed the seed
// data; the tail stays zero-filled.
type Segment struct {
	Vaddr   uint64
	MemSize uint64
	Port    uint32
	Data    []byte
}

type Image struct {
	Entry      uint64
	StackPages uint32
	Segments   []Segment
}

var (
	ErrBadMagic   = errors.New("not an app image")
	ErrBadVersion = errors.New("unsupported image version")
	ErrTruncated  = errors.New("image is truncated")
	ErrBadSegment = errors.New("bad segment")
)

// Parse decodes a flat image blob.
func Parse(blob []byte) (*Image, error) {
	r := bytes.NewReader(blob)

	var hdr imageHeader

	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(ErrTruncated, "header")
	}

	if hdr.Magic != imageMagic {
		return nil, errors.Wrapf(ErrBadMagic, "magic=%x", hdr.Magic)
	}

	if hdr.Version != imageVersion {
		return nil, errors.Wrapf(ErrBadVersion, "version=%d", hdr.Version)
	}

	img := &Image{
		Entry:      hdr.Entry,
		StackPages: hdr.StackPages,
	}

	for i := 0; i < int(hdr.Segments); i++ {
		var sh segmentHeader

		if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
			return nil, errors.Wrapf(ErrTruncated, "segment %d header", i)
		}

		if err := checkSegment(sh); err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}

		data := make([]byte, sh.DataLen)

		if _, err := io.ReadFull(r, data); err != nil {
			return nil, errors.Wrapf(ErrTruncated, "segment %d data", i)
		}

		img.Segments = append(img.Segments, Segment{
			Vaddr:   sh.Vaddr,
			MemSize: sh.MemSize,
			Port:    sh.Port,
			Data:    data,
		})
	}

	return img, nil
}

func checkSegment(sh segmentHeader) error {
	if sh.Vaddr%abi.PageSize != 0 {
		return errors.Wrapf(ErrBadSegment, "misaligned vaddr=%x", sh.Vaddr)
	}

	if sh.MemSize == 0 {
		return errors.Wrap(ErrBadSegment, "empty segment")
	}

	if uint64(sh.DataLen) > sh.MemSize {
		return errors.Wrapf(ErrBadSegment, "data %d exceeds size %d", sh.DataLen, sh.MemSize)
	}

	return nil
}

// Build emits the flat blob for an image. It is the inverse of Parse and
// the way demo apps and tests produce loadable images.
func Build(img *Image) ([]byte, error) {
	var buf bytes.Buffer

	hdr := imageHeader{
		Magic:      imageMagic,
		Version:    imageVersion,
		Segments:   uint16(len(img.Segments)),
		Entry:      img.Entry,
		StackPages: img.StackPages,
	}

	binary.Write(&buf, binary.LittleEndian, hdr)

	for i, seg := range img.Segments {
		sh := segmentHeader{
			Vaddr:   seg.Vaddr,
			MemSize: seg.MemSize,
			Port:    seg.Port,
			DataLen: uint32(len(seg.Data)),
		}

		if err := checkSegment(sh); err != nil {
			return nil, errors.Wrapf(err, "segment %d", i)
		}

		binary.Write(&buf, binary.LittleEndian, sh)
		buf.Write(seg.Data)
	}

	return buf.Bytes(), nil
}

func pageRound(sz uint64) uint64 {
	diff := sz % abi.PageSize
	if diff == 0 {
		return sz
	}

	return sz + (abi.PageSize - diff)
}

// Layout is where an image landed in an address space.
type Layout struct {
	Entry    uint64
	StackTop uint64
}

// Apply maps the image into as: every segment at its vaddr, then the user
// stack above the highest segment with an unmapped guard page between.
func (img *Image) Apply(as *memory.AddressSpace) (Layout, error) {
	var top uint64

	for i, seg := range img.Segments {
		err := as.Mmap(seg.Vaddr, pageRound(seg.MemSize), uint64(seg.Port))
		if err != nil {
			return Layout{}, errors.Wrapf(err, "mapping segment %d", i)
		}

		if err := as.Populate(seg.Vaddr, seg.Data); err != nil {
			return Layout{}, errors.Wrapf(err, "seeding segment %d", i)
		}

		if end := seg.Vaddr + pageRound(seg.MemSize); end > top {
			top = end
		}
	}

	pages := uint64(img.StackPages)
	if pages == 0 {
		pages = 1
	}

	stackBase := top + abi.PageSize

	err := as.Mmap(stackBase, pages*abi.PageSize, abi.ProtRead|abi.ProtWrite)
	if err != nil {
		return Layout{}, errors.Wrap(err, "mapping user stack")
	}

	return Layout{
		Entry:    img.Entry,
		StackTop: stackBase + pages*abi.PageSize,
	}, nil
}
