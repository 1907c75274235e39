// Package funcs extracts sized function symbols from ARM ELF images and
// groups the ones whose masked code is identical.
package funcs

import (
	"errors"
	"strings"
)

var ErrMaskLength = errors.New("funcs: data and mask lengths differ")

// Function is one distinct function body. Data and Mask are owned copies
// of equal length; Names lists every symbol seen with this body, in the
// order they were found.
type Function struct {
	Thumb bool
	Data  []byte
	Mask  []byte
	Names []string
}

// NewFunction copies data and mask into a new Function named name.
func NewFunction(thumb bool, name string, data, mask []byte) (*Function, error) {
	if len(data) != len(mask) {
		return nil, ErrMaskLength
	}
	return &Function{
		Thumb: thumb,
		Data:  append([]byte(nil), data...),
		Mask:  append([]byte(nil), mask...),
		Names: []string{name},
	}, nil
}

// Size returns the length of the function body in bytes.
func (f *Function) Size() int { return len(f.Data) }

// AddName records another symbol with the same body.
func (f *Function) AddName(name string) { f.Names = append(f.Names, name) }

// Matches reports whether f and o have the same body. Bits that either
// mask marks as insignificant are not compared.
func (f *Function) Matches(o *Function) bool { return Matches(f, o) }

// Matches reports whether a and b have the same instruction set and
// length, and agree on every bit both masks mark significant.
func Matches(a, b *Function) bool {
	if a.Thumb != b.Thumb || len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		m := a.Mask[i] & b.Mask[i]
		if a.Data[i]&m != b.Data[i]&m {
			return false
		}
	}
	return true
}

// Qualify returns name, or name(qualifier) when a qualifier is given.
func Qualify(name, qualifier string) string {
	if qualifier == "" {
		return name
	}
	return name + "(" + qualifier + ")"
}

// Qualifier returns the qualifier part of a name built by Qualify, or ""
// when the name has none.
func Qualifier(name string) string {
	i := strings.IndexByte(name, '(')
	if i < 0 || !strings.HasSuffix(name, ")") {
		return ""
	}
	return name[i+1 : len(name)-1]
}
