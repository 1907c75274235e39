// Package elfx decodes 32-bit little-endian ARM ELF images.
//
// Every header, section, symbol and relocation field is read with explicit
// little-endian readers on byte offsets, so decoding does not depend on the
// host byte order. Only the identification header is validated strictly;
// entries that point outside the image are skipped rather than reported.
package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrNotELF          = errors.New("elfx: not an ELF file")
	ErrNot32Bit        = errors.New("elfx: not 32-bit ELF")
	ErrNotLittleEndian = errors.New("elfx: not little-endian ELF")
	ErrNotARM          = errors.New("elfx: not ARM (EM_ARM)")
	ErrTruncated       = errors.New("elfx: truncated image")
)

// FormatError reports an image rejected by header validation. Err is one of
// the package sentinels, so callers can test it with errors.Is.
type FormatError struct {
	Err    error
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *FormatError) Unwrap() error { return e.Err }

// On-disk sizes of the ELF32 records this package decodes.
const (
	EhdrSize = 52
	ShdrSize = 40
	SymSize  = 16
	RelSize  = 8
	RelaSize = 12
)

// Section is one decoded section header.
type Section struct {
	Index   int
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlag
	Addr    uint32
	Offset  uint32
	Size    uint32
	Link    uint32
	Info    uint32
	Entsize uint32
}

// Symbol is one decoded symbol table entry with its name resolved.
type Symbol struct {
	Name    string
	Value   uint32
	Size    uint32
	Info    uint8
	Other   uint8
	Section elf.SectionIndex
}

// Bind returns the symbol binding (local, global, weak).
func (s Symbol) Bind() elf.SymBind { return elf.ST_BIND(s.Info) }

// Type returns the symbol type (func, object, ...).
func (s Symbol) Type() elf.SymType { return elf.ST_TYPE(s.Info) }

// Reloc is one REL or RELA entry. Offset is relative to the start of the
// section the relocation table applies to.
type Reloc struct {
	Offset uint32
	Type   elf.R_ARM
	Sym    uint32
}

// File is a validated ARM ELF32 image. It keeps a reference to the raw
// bytes it was parsed from; callers must not modify them.
type File struct {
	Type     elf.Type
	Machine  elf.Machine
	Sections []Section
	raw      []byte
}

// Parse validates the identification header of data and decodes its
// section table. It fails with a *FormatError when data is not a 32-bit
// little-endian ARM ELF image.
func Parse(data []byte) (*File, error) {
	if len(data) < elf.EI_NIDENT || string(data[:4]) != elf.ELFMAG {
		return nil, &FormatError{Err: ErrNotELF}
	}
	if c := elf.Class(data[elf.EI_CLASS]); c != elf.ELFCLASS32 {
		return nil, &FormatError{Err: ErrNot32Bit, Detail: c.String()}
	}
	if d := elf.Data(data[elf.EI_DATA]); d != elf.ELFDATA2LSB {
		return nil, &FormatError{Err: ErrNotLittleEndian, Detail: d.String()}
	}
	if len(data) < EhdrSize {
		return nil, &FormatError{Err: ErrTruncated, Detail: fmt.Sprintf("header is %d bytes", len(data))}
	}

	le := binary.LittleEndian
	m := elf.Machine(le.Uint16(data[18:]))
	if m != elf.EM_ARM {
		return nil, &FormatError{Err: ErrNotARM, Detail: m.String()}
	}

	f := &File{
		Type:    elf.Type(le.Uint16(data[16:])),
		Machine: m,
		raw:     data,
	}

	shoff := uint64(le.Uint32(data[32:]))
	shentsize := uint64(le.Uint16(data[46:]))
	shnum := uint64(le.Uint16(data[48:]))
	shstrndx := int(le.Uint16(data[50:]))

	if shnum == 0 {
		return f, nil
	}
	if shentsize < ShdrSize {
		return nil, &FormatError{Err: ErrTruncated, Detail: fmt.Sprintf("section header entry is %d bytes", shentsize)}
	}
	if shoff+shnum*shentsize > uint64(len(data)) {
		return nil, &FormatError{Err: ErrTruncated, Detail: fmt.Sprintf("section table at 0x%x runs past end of image", shoff)}
	}

	f.Sections = make([]Section, shnum)
	for i := range f.Sections {
		h := data[shoff+uint64(i)*shentsize:]
		f.Sections[i] = Section{
			Index:   i,
			Type:    elf.SectionType(le.Uint32(h[4:])),
			Flags:   elf.SectionFlag(le.Uint32(h[8:])),
			Addr:    le.Uint32(h[12:]),
			Offset:  le.Uint32(h[16:]),
			Size:    le.Uint32(h[20:]),
			Link:    le.Uint32(h[24:]),
			Info:    le.Uint32(h[28:]),
			Entsize: le.Uint32(h[36:]),
		}
	}

	// Section names are cosmetic; a broken shstrtab leaves them empty.
	if shstrndx < len(f.Sections) {
		names := f.SectionData(f.Sections[shstrndx])
		for i := range f.Sections {
			h := data[shoff+uint64(i)*shentsize:]
			f.Sections[i].Name = cstring(names, le.Uint32(h[0:]))
		}
	}

	return f, nil
}

// Relocatable reports whether the image is an ET_REL object, in which case
// symbol values are section-relative rather than load addresses.
func (f *File) Relocatable() bool { return f.Type == elf.ET_REL }

// Section returns the section at index i, or false when i is out of range.
func (f *File) Section(i uint32) (Section, bool) {
	if uint64(i) >= uint64(len(f.Sections)) {
		return Section{}, false
	}
	return f.Sections[i], true
}

// SectionData returns the bytes of s that lie inside the image. SHT_NOBITS
// sections have no bytes. The result aliases the parsed image.
func (f *File) SectionData(s Section) []byte {
	if s.Type == elf.SHT_NOBITS {
		return nil
	}
	start := uint64(s.Offset)
	if start >= uint64(len(f.raw)) {
		return nil
	}
	end := start + uint64(s.Size)
	if end > uint64(len(f.raw)) {
		end = uint64(len(f.raw))
	}
	return f.raw[start:end:end]
}

// Symbols decodes every entry of the symbol table s, including the null
// entry at index 0, so that slice indices match symbol indices. Names are
// resolved through the string table named by s.Link.
func (f *File) Symbols(s Section) []Symbol {
	ent := uint64(s.Entsize)
	if ent == 0 {
		ent = SymSize
	}
	if ent < SymSize {
		return nil
	}

	var names []byte
	if strtab, ok := f.Section(s.Link); ok {
		names = f.SectionData(strtab)
	}

	data := f.SectionData(s)
	n := uint64(len(data)) / ent
	le := binary.LittleEndian
	syms := make([]Symbol, 0, n)
	for i := uint64(0); i < n; i++ {
		e := data[i*ent:]
		syms = append(syms, Symbol{
			Name:    cstring(names, le.Uint32(e[0:])),
			Value:   le.Uint32(e[4:]),
			Size:    le.Uint32(e[8:]),
			Info:    e[12],
			Other:   e[13],
			Section: elf.SectionIndex(le.Uint16(e[14:])),
		})
	}
	return syms
}

// Relocs decodes the REL or RELA table s. Addends are not needed for
// masking and are dropped.
func (f *File) Relocs(s Section) []Reloc {
	ent := uint64(s.Entsize)
	if ent == 0 {
		ent = RelSize
		if s.Type == elf.SHT_RELA {
			ent = RelaSize
		}
	}
	if ent < RelSize {
		return nil
	}

	data := f.SectionData(s)
	n := uint64(len(data)) / ent
	le := binary.LittleEndian
	rels := make([]Reloc, 0, n)
	for i := uint64(0); i < n; i++ {
		e := data[i*ent:]
		info := le.Uint32(e[4:])
		rels = append(rels, Reloc{
			Offset: le.Uint32(e[0:]),
			Type:   elf.R_ARM(elf.R_TYPE32(info)),
			Sym:    elf.R_SYM32(info),
		})
	}
	return rels
}

// cstring returns the NUL-terminated string at off in tab, or "" when off
// is out of range.
func cstring(tab []byte, off uint32) string {
	if uint64(off) >= uint64(len(tab)) {
		return ""
	}
	s := tab[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}
