package funcs

import (
	"debug/elf"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/dustin/go-humanize"

	"github.com/StanHash/samefunc/internal/elfx"
	"github.com/StanHash/samefunc/internal/image"
)

// Options controls extraction.
type Options struct {
	// Lax also masks the immediate operands of common Thumb instructions,
	// so functions differing only in small constants or offsets match.
	Lax bool
	// Log receives debug progress lines. nil means silent.
	Log log.Interface
}

var silent = &log.Logger{Handler: discard.New(), Level: log.FatalLevel}

func (o Options) logger() log.Interface {
	if o.Log != nil {
		return o.Log
	}
	return silent
}

// Candidate is a function symbol located in an assembled image.
type Candidate struct {
	Thumb  bool
	Offset int
	Size   int
	Name   string
}

// Stats summarizes one Extract call.
type Stats struct {
	Functions int // sized function symbols extracted
	New       int // of which were not already in the registry
	Relocs    image.RelocStats
	Masked    int // Thumb instructions with masked immediates
}

// Load parses data and builds its masked image. The returned image is
// ready for Candidates.
func Load(data []byte, opts Options) (*elfx.File, *image.Image, Stats, error) {
	var st Stats
	f, err := elfx.Parse(data)
	if err != nil {
		return nil, nil, st, err
	}

	img := image.Assemble(f)
	points := image.Classify(f, img)
	st.Relocs = image.MaskRelocations(f, img)
	if opts.Lax {
		st.Masked = image.MaskInstructions(img, points)
	}

	opts.logger().WithFields(log.Fields{
		"sections": len(f.Sections),
		"size":     humanize.Bytes(uint64(len(img.Data))),
		"points":   len(points),
		"relocs":   st.Relocs.Masked,
		"ignored":  st.Relocs.Ignored,
		"masked":   st.Masked,
	}).Debug("assembled image")

	return f, img, st, nil
}

// Candidates lists every sized STT_FUNC symbol of f that lies in a section
// with data. Sizes are rounded up to a multiple of 4 and clipped to the
// end of the image.
func Candidates(f *elfx.File, img *image.Image, qualifier string) []Candidate {
	var out []Candidate
	for _, s := range f.Sections {
		if s.Type != elf.SHT_SYMTAB {
			continue
		}
		for _, sym := range f.Symbols(s) {
			if sym.Type() != elf.STT_FUNC || sym.Size == 0 {
				continue
			}
			off, thumb, ok := img.Locate(sym)
			if !ok {
				continue
			}
			size := min((int(sym.Size)+3)&^3, len(img.Data)-off)
			out = append(out, Candidate{
				Thumb:  thumb,
				Offset: off,
				Size:   size,
				Name:   Qualify(sym.Name, qualifier),
			})
		}
	}
	return out
}

// Function copies the candidate's bytes and mask out of img.
func (c Candidate) Function(img *image.Image) (*Function, error) {
	end := c.Offset + c.Size
	return NewFunction(c.Thumb, c.Name, img.Data[c.Offset:end], img.Mask[c.Offset:end])
}

// Extract parses one ELF image and folds its functions into r. Names are
// qualified with qualifier when it is not empty. A malformed image returns
// an *elfx.FormatError and leaves r untouched.
func Extract(r *Registry, qualifier string, data []byte, opts Options) (Stats, error) {
	f, img, st, err := Load(data, opts)
	if err != nil {
		return st, err
	}

	l := opts.logger()
	for _, c := range Candidates(f, img, qualifier) {
		fn, err := c.Function(img)
		if err != nil {
			return st, err
		}
		st.Functions++
		if r.Add(fn) == fn {
			st.New++
		} else {
			l.WithField("name", c.Name).Debug("matched existing function")
		}
	}

	l.WithFields(log.Fields{
		"image":     qualifier,
		"functions": st.Functions,
		"new":       st.New,
	}).Debug("extracted functions")
	return st, nil
}
