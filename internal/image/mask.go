package image

import (
	"debug/elf"
	"encoding/binary"

	"github.com/StanHash/samefunc/internal/elfx"
)

// RelocStats counts relocation entries seen by MaskRelocations.
type RelocStats struct {
	Masked  int
	Ignored int
}

// MaskRelocations clears the mask bits of every relocation site in img.
// Tables whose target section has no data are skipped, and relocation
// types without a known field layout leave the mask untouched.
func MaskRelocations(f *elfx.File, img *Image) RelocStats {
	var st RelocStats
	for _, s := range f.Sections {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		base, ok := img.Offset(int(s.Info))
		if !ok {
			continue
		}
		for _, r := range f.Relocs(s) {
			if img.maskReloc(base+int(r.Offset), r.Type) {
				st.Masked++
			} else {
				st.Ignored++
			}
		}
	}
	return st
}

var (
	word     = []byte{0x00, 0x00, 0x00, 0x00}
	half     = []byte{0x00, 0x00}
	single   = []byte{0x00}
	thumbBL  = []byte{0x00, 0xF8, 0x00, 0xF8} // imm11 fields of both halves
	relocMap = map[elf.R_ARM][]byte{
		elf.R_ARM_ABS32:    word,
		elf.R_ARM_REL32:    word,
		elf.R_ARM_ABS16:    half,
		elf.R_ARM_ABS8:     single,
		elf.R_ARM_THM_PC22: thumbBL,
	}
)

// RelocMask returns the mask pattern for relocation type t, or nil when t
// is not recognized.
func RelocMask(t elf.R_ARM) []byte {
	return relocMap[t]
}

func (img *Image) maskReloc(pos int, t elf.R_ARM) bool {
	pattern := RelocMask(t)
	if pattern == nil {
		return false
	}
	img.and(pos, pattern)
	return true
}

// and ANDs pattern into the mask at pos, clipped to the buffer.
func (img *Image) and(pos int, pattern []byte) {
	for i, m := range pattern {
		if p := pos + i; p >= 0 && p < len(img.Mask) {
			img.Mask[p] &= m
		}
	}
}

// MaskInstructions runs MaskThumb over every Thumb region delimited by
// points, which must be sorted as returned by Classify. ARM, data and
// unknown regions are left alone. It returns the number of instructions
// whose immediates were masked.
func MaskInstructions(img *Image, points []Point) int {
	n := 0
	for i := 0; i+1 < len(points); i++ {
		p := points[i]
		if p.Kind != Thumb {
			continue
		}
		end := min(points[i+1].Offset, len(img.Data))
		if p.Offset >= end {
			continue
		}
		n += MaskThumb(img.Data[p.Offset:end], img.Mask[p.Offset:end])
	}
	return n
}

// MaskThumb clears the immediate fields of the 16-bit Thumb instructions
// in data that it recognizes. Register and opcode bits stay significant;
// anything unrecognized, including a trailing odd byte, is left alone.
func MaskThumb(data, mask []byte) int {
	n := 0
	for off := 0; off+1 < len(data) && off+1 < len(mask); off += 2 {
		lo, hi := thumbImmMask(binary.LittleEndian.Uint16(data[off:]))
		if lo == 0xFF && hi == 0xFF {
			continue
		}
		mask[off] &= lo
		mask[off+1] &= hi
		n++
	}
	return n
}

// thumbImmMask returns the mask for the low and high byte of ins.
func thumbImmMask(ins uint16) (lo, hi byte) {
	switch {
	case ins&0xFC00 == 0x1C00:
		// add/sub rd, rn, #imm3
		return 0x3F, 0xFE
	case ins&0xE000 == 0x2000:
		// mov/cmp/add/sub rd, #imm8
		return 0x00, 0xFF
	case ins&0xE000 == 0x6000:
		// ldr/str/ldrb/strb rd, [rn, #imm5]
		return 0x3F, 0xF8
	case ins&0xF000 == 0x8000:
		// ldrh/strh rd, [rn, #imm5]
		return 0x3F, 0xF8
	}
	return 0xFF, 0xFF
}
