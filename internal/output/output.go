// Package output turns a function registry into duplicate reports.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/StanHash/samefunc/internal/funcs"
)

// Group is one function body seen under several names.
type Group struct {
	Size  int      `json:"size"`
	Thumb bool     `json:"thumb"`
	Names []string `json:"names"`
}

// Report is the JSON document written by WriteReportJSON.
type Report struct {
	Images []string `json:"images"`
	Lax    bool     `json:"lax"`
	Cross  bool     `json:"cross"`
	Groups []Group  `json:"groups"`
}

// Groups returns the registry entries seen under at least two names. When
// cross is set, only entries whose names come from more than one image
// are kept.
func Groups(r *funcs.Registry, cross bool) []Group {
	var out []Group
	for _, fn := range r.Duplicates() {
		if cross && !CrossImage(fn.Names) {
			continue
		}
		out = append(out, Group{
			Size:  fn.Size(),
			Thumb: fn.Thumb,
			Names: append([]string(nil), fn.Names...),
		})
	}
	return out
}

// CrossImage reports whether names carry more than one distinct image
// qualifier.
func CrossImage(names []string) bool {
	if len(names) == 0 {
		return false
	}
	first := funcs.Qualifier(names[0])
	for _, n := range names[1:] {
		if funcs.Qualifier(n) != first {
			return true
		}
	}
	return false
}

var sizeColor = color.New(color.Bold, color.FgHiBlue).SprintFunc()

// WriteText writes one line per group: the body size followed by every
// name, separated by spaces.
func WriteText(w io.Writer, groups []Group) error {
	for _, g := range groups {
		line := sizeColor(g.Size) + " " + strings.Join(g.Names, " ")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("output: write: %w", err)
		}
	}
	return nil
}

// WriteReportJSON writes rep to path.
func WriteReportJSON(path string, rep Report) error {
	return writeJSON(path, rep)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
