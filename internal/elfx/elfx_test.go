package elfx

import (
	"debug/elf"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/StanHash/samefunc/internal/elftest"
)

func sampleImage() []byte {
	var b elftest.Builder
	text := b.AddText([]byte{0x00, 0x20, 0x70, 0x47})
	b.AddSection(".bss", elf.SHT_NOBITS, 0, nil)
	b.AddSymbols(
		elftest.Mapping('t', 0, text),
		elftest.Func("zero", 1, 4, text),
	)
	b.AddRelocs(text, elftest.Rel{Offset: 0, Type: elf.R_ARM_ABS32})
	return b.Bytes()
}

func TestParseValid(t *testing.T) {
	f, err := Parse(sampleImage())
	if err != nil {
		t.Fatal(err)
	}
	if !f.Relocatable() {
		t.Error("expected ET_REL image to be relocatable")
	}
	if f.Machine != elf.EM_ARM {
		t.Errorf("machine = %v, want EM_ARM", f.Machine)
	}

	var names []string
	for _, s := range f.Sections {
		names = append(names, s.Name)
	}
	want := []string{"", ".text", ".bss", ".symtab", ".strtab", ".rel.text", ".shstrtab"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("section names (-want +got):\n%s", diff)
	}

	text := f.Sections[1]
	if text.Type != elf.SHT_PROGBITS {
		t.Errorf("section 1 type = %v", text.Type)
	}
	if got := f.SectionData(text); len(got) != 4 || got[1] != 0x20 {
		t.Errorf("text data = % x", got)
	}
	if got := f.SectionData(f.Sections[2]); got != nil {
		t.Errorf("NOBITS data = % x, want nil", got)
	}
}

func TestParseSymbols(t *testing.T) {
	f, err := Parse(sampleImage())
	if err != nil {
		t.Fatal(err)
	}
	symtab := f.Sections[3]
	syms := f.Symbols(symtab)
	if len(syms) != 3 {
		t.Fatalf("got %d symbols, want 3 (null + 2)", len(syms))
	}
	if symtab.Info != 2 {
		t.Errorf("symtab sh_info = %d, want 2 (null + $t)", symtab.Info)
	}

	m := syms[1]
	if m.Name != "$t" || m.Bind() != elf.STB_LOCAL || m.Section != 1 {
		t.Errorf("mapping symbol = %+v", m)
	}
	fn := syms[2]
	if fn.Name != "zero" || fn.Type() != elf.STT_FUNC || fn.Value != 1 || fn.Size != 4 {
		t.Errorf("function symbol = %+v", fn)
	}
}

func TestParseRelocs(t *testing.T) {
	f, err := Parse(sampleImage())
	if err != nil {
		t.Fatal(err)
	}
	rel := f.Sections[5]
	if rel.Type != elf.SHT_REL || rel.Info != 1 {
		t.Fatalf("rel section = %+v", rel)
	}
	got := f.Relocs(rel)
	want := []Reloc{{Offset: 0, Type: elf.R_ARM_ABS32}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("relocs (-want +got):\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"Empty", func([]byte) []byte { return nil }, ErrNotELF},
		{"Garbage", func([]byte) []byte { return []byte("not an ELF file at all") }, ErrNotELF},
		{"BadMagic", func(b []byte) []byte { b[1] = 'X'; return b }, ErrNotELF},
		{"Class64", func(b []byte) []byte { b[elf.EI_CLASS] = byte(elf.ELFCLASS64); return b }, ErrNot32Bit},
		{"BigEndian", func(b []byte) []byte { b[elf.EI_DATA] = byte(elf.ELFDATA2MSB); return b }, ErrNotLittleEndian},
		{"ShortHeader", func(b []byte) []byte { return b[:30] }, ErrTruncated},
		{"X86", func(b []byte) []byte { b[18] = byte(elf.EM_386); b[19] = 0; return b }, ErrNotARM},
		{"SectionTablePastEnd", func(b []byte) []byte { return b[:len(b)-8] }, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.mutate(sampleImage()))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("err %T is not a *FormatError", err)
			}
		})
	}
}

func TestParseExecutable(t *testing.T) {
	b := elftest.Builder{Type: elf.ET_EXEC}
	text := b.AddSection(".text", elf.SHT_PROGBITS, 0x8000, []byte{0, 0, 0, 0})
	b.AddSymbols(elftest.Func("f", 0x8001, 4, text))
	f, err := Parse(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if f.Relocatable() {
		t.Error("ET_EXEC image reported as relocatable")
	}
	if f.Sections[text].Addr != 0x8000 {
		t.Errorf("text addr = 0x%x, want 0x8000", f.Sections[text].Addr)
	}
}

func TestSectionDataClamped(t *testing.T) {
	f, err := Parse(sampleImage())
	if err != nil {
		t.Fatal(err)
	}
	s := f.Sections[1]
	s.Size = 1 << 30
	if got := f.SectionData(s); len(got) == 0 || len(got) > len(f.raw) {
		t.Errorf("clamped data length = %d", len(got))
	}
	s.Offset = 1 << 30
	if got := f.SectionData(s); got != nil {
		t.Errorf("out of range section data = % x, want nil", got)
	}
	if _, ok := f.Section(1000); ok {
		t.Error("Section(1000) reported ok")
	}
}

func FuzzParse(f *testing.F) {
	f.Add(sampleImage())
	f.Add([]byte("\x7fELF\x01\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00"))
	f.Add([]byte("not an elf at all"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		ef, err := Parse(data)
		if err != nil {
			return
		}
		for _, s := range ef.Sections {
			ef.SectionData(s)
			switch s.Type {
			case elf.SHT_SYMTAB:
				ef.Symbols(s)
			case elf.SHT_REL, elf.SHT_RELA:
				ef.Relocs(s)
			}
		}
	})
}
