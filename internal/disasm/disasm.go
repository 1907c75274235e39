// Package disasm renders masked listings of ARM and Thumb function bodies.
//
// ARM-mode words are decoded with armasm. Thumb halfwords are listed raw:
// the matcher only recognizes a handful of Thumb encodings and this
// package does not pretend to know more.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"
)

// Inst is one listed instruction unit with its significance mask.
type Inst struct {
	Addr uint64
	Raw  uint32
	Mask uint32
	Size int // 4 for ARM, 2 for Thumb
	Text string
}

// Masked reports whether any bit of the instruction is insignificant.
func (i Inst) Masked() bool {
	full := uint32(0xFFFFFFFF)
	if i.Size == 2 {
		full = 0xFFFF
	}
	return i.Mask != full
}

// Options controls listing behavior.
type Options struct {
	Thumb    bool   // list 16-bit Thumb units instead of ARM words
	BaseAddr uint64 // address of the first byte
	MaxSteps int    // maximum units to list; 0 = 10M
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Disassemble lists data in instruction-sized units, pairing each with the
// corresponding bytes of mask. A trailing partial unit is dropped.
func Disassemble(data, mask []byte, opts Options) []Inst {
	size := 4
	if opts.Thumb {
		size = 2
	}
	n := min(len(data), len(mask)) / size
	n = min(n, opts.effectiveMax())

	result := make([]Inst, 0, n)
	for i := 0; i < n; i++ {
		off := i * size
		inst := Inst{Addr: opts.BaseAddr + uint64(off), Size: size}
		if opts.Thumb {
			inst.Raw = uint32(binary.LittleEndian.Uint16(data[off:]))
			inst.Mask = uint32(binary.LittleEndian.Uint16(mask[off:]))
			inst.Text = fmt.Sprintf(".hword 0x%04x", inst.Raw)
		} else {
			inst.Raw = binary.LittleEndian.Uint32(data[off:])
			inst.Mask = binary.LittleEndian.Uint32(mask[off:])
			inst.Text = decodeARM(data[off:off+4], inst.Raw)
		}
		result = append(result, inst)
	}
	return result
}

func decodeARM(src []byte, raw uint32) string {
	inst, err := armasm.Decode(src, armasm.ModeARM)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", raw)
	}
	return inst.String()
}

// Format renders insts as stable text, one per line:
// <addr>  <bytes>  <mask>  <disasm>
// Units with insignificant bits are flagged with a trailing "; masked".
func Format(insts []Inst) string {
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "0x%08x  ", inst.Addr)
		writeBytes(&b, inst.Raw, inst.Size)
		b.WriteString("  ")
		writeBytes(&b, inst.Mask, inst.Size)
		b.WriteString("  ")
		b.WriteString(inst.Text)
		if inst.Masked() {
			b.WriteString("  ; masked")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// writeBytes writes the little-endian bytes of v, padded so ARM and Thumb
// listings line up.
func writeBytes(b *strings.Builder, v uint32, size int) {
	for i := 0; i < 4; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i >= size {
			b.WriteString("  ")
			continue
		}
		fmt.Fprintf(b, "%02x", byte(v>>(8*i)))
	}
}
