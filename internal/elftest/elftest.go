// Package elftest builds small ARM ELF32 images for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
	"sort"
)

// Sym is a symbol to emit. Section is the index returned by AddSection.
type Sym struct {
	Name    string
	Value   uint32
	Size    uint32
	Info    uint8
	Section int
}

// Rel is one relocation entry against the section it is attached to.
type Rel struct {
	Offset uint32
	Type   elf.R_ARM
}

type section struct {
	name string
	typ  elf.SectionType
	addr uint32
	data []byte
}

// Builder assembles an image. The zero value builds an ET_REL EM_ARM
// object.
type Builder struct {
	Type    elf.Type
	Machine elf.Machine

	sections []section
	syms     []Sym
	rels     map[int][]Rel
}

// Func returns a global STT_FUNC symbol.
func Func(name string, value, size uint32, sec int) Sym {
	return Sym{Name: name, Value: value, Size: size, Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Section: sec}
}

// Mapping returns a local mapping symbol such as $t for kind 't'.
func Mapping(kind byte, value uint32, sec int) Sym {
	return Sym{Name: "$" + string(kind), Value: value, Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_NOTYPE), Section: sec}
}

// AddSection appends a section and returns its index in the final image.
func (b *Builder) AddSection(name string, typ elf.SectionType, addr uint32, data []byte) int {
	b.sections = append(b.sections, section{name: name, typ: typ, addr: addr, data: data})
	return len(b.sections)
}

// AddText appends an SHT_PROGBITS .text section at address 0.
func (b *Builder) AddText(data []byte) int {
	return b.AddSection(".text", elf.SHT_PROGBITS, 0, data)
}

// AddSymbols queues symbols. Locals are emitted before globals.
func (b *Builder) AddSymbols(syms ...Sym) {
	b.syms = append(b.syms, syms...)
}

// AddRelocs queues relocations applying to section target.
func (b *Builder) AddRelocs(target int, rels ...Rel) {
	if b.rels == nil {
		b.rels = make(map[int][]Rel)
	}
	b.rels[target] = append(b.rels[target], rels...)
}

type strtab struct{ data []byte }

func (t *strtab) add(s string) uint32 {
	if len(t.data) == 0 {
		t.data = []byte{0}
	}
	if s == "" {
		return 0
	}
	off := uint32(len(t.data))
	t.data = append(t.data, s...)
	t.data = append(t.data, 0)
	return off
}

type shdr struct {
	name, typ, flags, addr, off, size, link, info, align, entsize uint32
}

// Bytes serializes the image.
func (b *Builder) Bytes() []byte {
	le := binary.LittleEndian
	var shstr, str strtab
	shstr.add("")
	str.add("")

	body := make([]byte, 52)
	hdrs := []shdr{{}}
	align := func() {
		for len(body)%4 != 0 {
			body = append(body, 0)
		}
	}
	emit := func(h shdr, data []byte) {
		align()
		h.off = uint32(len(body))
		h.size = uint32(len(data))
		h.align = 4
		body = append(body, data...)
		hdrs = append(hdrs, h)
	}

	for _, s := range b.sections {
		h := shdr{name: shstr.add(s.name), typ: uint32(s.typ), addr: s.addr}
		if s.typ == elf.SHT_PROGBITS {
			h.flags = uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
		}
		emit(h, s.data)
	}

	ordered := make([]Sym, 0, len(b.syms))
	for _, s := range b.syms {
		if elf.ST_BIND(s.Info) == elf.STB_LOCAL {
			ordered = append(ordered, s)
		}
	}
	nlocal := uint32(len(ordered)) + 1
	for _, s := range b.syms {
		if elf.ST_BIND(s.Info) != elf.STB_LOCAL {
			ordered = append(ordered, s)
		}
	}

	symtab := make([]byte, 16, 16*(len(ordered)+1))
	for _, s := range ordered {
		e := make([]byte, 16)
		le.PutUint32(e[0:], str.add(s.Name))
		le.PutUint32(e[4:], s.Value)
		le.PutUint32(e[8:], s.Size)
		e[12] = s.Info
		le.PutUint16(e[14:], uint16(s.Section))
		symtab = append(symtab, e...)
	}

	symtabIdx := uint32(len(hdrs))
	emit(shdr{name: shstr.add(".symtab"), typ: uint32(elf.SHT_SYMTAB), link: symtabIdx + 1, info: nlocal, entsize: 16}, symtab)
	emit(shdr{name: shstr.add(".strtab"), typ: uint32(elf.SHT_STRTAB)}, str.data)

	targets := make([]int, 0, len(b.rels))
	for t := range b.rels {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	for _, t := range targets {
		var data []byte
		for _, r := range b.rels[t] {
			e := make([]byte, 8)
			le.PutUint32(e[0:], r.Offset)
			le.PutUint32(e[4:], elf.R_INFO32(0, uint32(r.Type)))
			data = append(data, e...)
		}
		name := ".rel"
		if t >= 1 && t <= len(b.sections) {
			name += b.sections[t-1].name
		}
		emit(shdr{name: shstr.add(name), typ: uint32(elf.SHT_REL), link: symtabIdx, info: uint32(t), entsize: 8}, data)
	}

	shstrIdx := len(hdrs)
	nameOff := shstr.add(".shstrtab")
	emit(shdr{name: nameOff, typ: uint32(elf.SHT_STRTAB)}, shstr.data)

	align()
	shoff := uint32(len(body))
	for _, h := range hdrs {
		e := make([]byte, 40)
		for i, v := range []uint32{h.name, h.typ, h.flags, h.addr, h.off, h.size, h.link, h.info, h.align, h.entsize} {
			le.PutUint32(e[i*4:], v)
		}
		body = append(body, e...)
	}

	typ, machine := b.Type, b.Machine
	if typ == elf.ET_NONE {
		typ = elf.ET_REL
	}
	if machine == elf.EM_NONE {
		machine = elf.EM_ARM
	}
	copy(body, elf.ELFMAG)
	body[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	body[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	body[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	le.PutUint16(body[16:], uint16(typ))
	le.PutUint16(body[18:], uint16(machine))
	le.PutUint32(body[20:], uint32(elf.EV_CURRENT))
	le.PutUint32(body[32:], shoff)
	le.PutUint16(body[40:], 52)
	le.PutUint16(body[46:], 40)
	le.PutUint16(body[48:], uint16(len(hdrs)))
	le.PutUint16(body[50:], uint16(shstrIdx))
	return body
}
