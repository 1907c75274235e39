package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/StanHash/samefunc/internal/funcs"
)

func registry(t *testing.T, entries ...[]string) *funcs.Registry {
	t.Helper()
	r := funcs.NewRegistry()
	for i, names := range entries {
		data := []byte{byte(i), 0, 0, 0}
		for _, n := range names {
			fn, err := funcs.NewFunction(true, n, data, []byte{0xFF, 0xFF, 0xFF, 0xFF})
			if err != nil {
				t.Fatal(err)
			}
			r.Add(fn)
		}
	}
	return r
}

func TestCrossImage(t *testing.T) {
	tests := []struct {
		names []string
		want  bool
	}{
		{nil, false},
		{[]string{"f(a.o)"}, false},
		{[]string{"f(a.o)", "g(a.o)"}, false},
		{[]string{"f(a.o)", "g(a.o)", "f(b.o)"}, true},
		{[]string{"f", "g"}, false},
	}
	for _, tt := range tests {
		if got := CrossImage(tt.names); got != tt.want {
			t.Errorf("CrossImage(%q) = %v, want %v", tt.names, got, tt.want)
		}
	}
}

func TestGroups(t *testing.T) {
	r := registry(t,
		[]string{"f(a.o)", "f(b.o)"},
		[]string{"only(a.o)"},
		[]string{"g(a.o)", "h(a.o)"},
	)

	all := Groups(r, false)
	want := []Group{
		{Size: 4, Thumb: true, Names: []string{"f(a.o)", "f(b.o)"}},
		{Size: 4, Thumb: true, Names: []string{"g(a.o)", "h(a.o)"}},
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("groups (-want +got):\n%s", diff)
	}

	cross := Groups(r, true)
	if diff := cmp.Diff(want[:1], cross); diff != "" {
		t.Errorf("cross groups (-want +got):\n%s", diff)
	}
}

func TestWriteText(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	groups := []Group{
		{Size: 8, Names: []string{"a", "b"}},
		{Size: 12, Names: []string{"c(x.o)", "d(y.o)", "e(y.o)"}},
	}
	if err := WriteText(&buf, groups); err != nil {
		t.Fatal(err)
	}
	want := "8 a b\n12 c(x.o) d(y.o) e(y.o)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	rep := Report{
		Images: []string{"a.o", "b.o"},
		Cross:  true,
		Groups: []Group{{Size: 4, Thumb: true, Names: []string{"f(a.o)", "f(b.o)"}}},
	}
	if err := WriteReportJSON(path, rep); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rep, got); diff != "" {
		t.Errorf("report (-want +got):\n%s", diff)
	}

	if err := WriteReportJSON(filepath.Join(t.TempDir(), "missing", "r.json"), rep); err == nil {
		t.Error("expected error for missing directory")
	}
}
