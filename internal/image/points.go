package image

import (
	"cmp"
	"debug/elf"
	"slices"

	"github.com/StanHash/samefunc/internal/elfx"
)

// Kind is the instruction set or data nature of the bytes following a
// mapping symbol. The declaration order is the tie-break when two points
// share an offset: the later kind governs the region.
type Kind uint8

const (
	Unknown Kind = iota
	Arm
	Thumb
	Data
)

func (k Kind) String() string {
	switch k {
	case Arm:
		return "arm"
	case Thumb:
		return "thumb"
	case Data:
		return "data"
	}
	return "unknown"
}

// Point marks the start of a region of the buffer.
type Point struct {
	Offset int
	Kind   Kind
}

// KindOf classifies a mapping symbol name. ok is false for names that are
// not mapping symbols at all; an unrecognized suffix such as "$x" is still
// a mapping symbol and yields Unknown.
func KindOf(name string) (k Kind, ok bool) {
	if len(name) != 2 || name[0] != '$' {
		return Unknown, false
	}
	switch name[1] {
	case 'a':
		return Arm, true
	case 't':
		return Thumb, true
	case 'd':
		return Data, true
	}
	return Unknown, true
}

// Classify collects the region boundaries of img: one Unknown point per
// section start, one point per local mapping symbol of f, and a final
// Unknown point at the end of the buffer. The result is sorted by offset,
// then by kind.
func Classify(f *elfx.File, img *Image) []Point {
	points := make([]Point, 0, len(img.starts)+1)
	for _, off := range img.starts {
		points = append(points, Point{Offset: off, Kind: Unknown})
	}

	for _, s := range f.Sections {
		if s.Type != elf.SHT_SYMTAB {
			continue
		}
		syms := f.Symbols(s)
		// Locals always come first; sh_info is one past the last of them.
		if int(s.Info) < len(syms) {
			syms = syms[:s.Info]
		}
		for _, sym := range syms {
			if sym.Bind() != elf.STB_LOCAL {
				continue
			}
			kind, ok := KindOf(sym.Name)
			if !ok {
				continue
			}
			off, _, ok := img.Locate(sym)
			if !ok {
				continue
			}
			points = append(points, Point{Offset: off, Kind: kind})
		}
	}

	points = append(points, Point{Offset: len(img.Data), Kind: Unknown})
	slices.SortFunc(points, func(a, b Point) int {
		return cmp.Or(cmp.Compare(a.Offset, b.Offset), cmp.Compare(a.Kind, b.Kind))
	})
	return points
}
