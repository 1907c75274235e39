// Package image flattens the loadable sections of an ARM ELF image into one
// buffer and builds the significance mask that says which bits of that
// buffer must match when two functions are compared.
package image

import (
	"bytes"
	"debug/elf"

	"github.com/StanHash/samefunc/internal/elfx"
)

// NoData is the buffer offset recorded for sections that contributed no
// bytes. It never collides with a real offset.
const NoData = -1

// Image is the concatenation of every SHT_PROGBITS section of one ELF file
// together with its significance mask. len(Mask) == len(Data) always.
type Image struct {
	Data []byte
	Mask []byte

	relocatable bool
	offsets     []int
	addrs       []uint32
	starts      []int
}

// Assemble copies the bytes of every SHT_PROGBITS section of f, in section
// table order, into a fresh buffer. The mask starts fully significant.
func Assemble(f *elfx.File) *Image {
	img := &Image{
		relocatable: f.Relocatable(),
		offsets:     make([]int, len(f.Sections)),
		addrs:       make([]uint32, len(f.Sections)),
	}
	for i, s := range f.Sections {
		img.addrs[i] = s.Addr
		if s.Type != elf.SHT_PROGBITS {
			img.offsets[i] = NoData
			continue
		}
		img.offsets[i] = len(img.Data)
		img.starts = append(img.starts, len(img.Data))
		img.Data = append(img.Data, f.SectionData(s)...)
	}
	img.Mask = bytes.Repeat([]byte{0xFF}, len(img.Data))
	return img
}

// Offset returns the buffer offset of section sec, or false when the
// section is out of range or has no data.
func (img *Image) Offset(sec int) (int, bool) {
	if sec < 0 || sec >= len(img.offsets) || img.offsets[sec] == NoData {
		return 0, false
	}
	return img.offsets[sec], true
}

// Locate maps a symbol to its buffer offset. For relocatable images the
// symbol value is section-relative; otherwise the section load address is
// subtracted first. The low bit of the value selects Thumb and is not part
// of the address. ok is false when the symbol lies outside any data.
func (img *Image) Locate(s elfx.Symbol) (off int, thumb bool, ok bool) {
	base, ok := img.Offset(int(s.Section))
	if !ok {
		return 0, false, false
	}
	value := int64(s.Value)
	if !img.relocatable {
		value -= int64(img.addrs[s.Section])
		if value < 0 {
			return 0, false, false
		}
	}
	off = base + int(value&^1)
	if off >= len(img.Data) {
		return 0, false, false
	}
	return off, value&1 != 0, true
}
