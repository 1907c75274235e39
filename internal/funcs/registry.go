package funcs

// Registry accumulates distinct function bodies across images, in the
// order they were first seen. It is not safe for concurrent use.
type Registry struct {
	funcs []*Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add folds fn into the registry. If an existing entry matches, fn's names
// are appended to it and that entry is returned; otherwise fn itself is
// appended and returned.
func (r *Registry) Add(fn *Function) *Function {
	for _, have := range r.funcs {
		if have.Matches(fn) {
			for _, name := range fn.Names {
				have.AddName(name)
			}
			return have
		}
	}
	r.funcs = append(r.funcs, fn)
	return fn
}

// Len returns the number of distinct bodies.
func (r *Registry) Len() int { return len(r.funcs) }

// Functions returns every entry in first-seen order. The caller must not
// modify the returned slice.
func (r *Registry) Functions() []*Function { return r.funcs }

// Duplicates returns the entries seen under at least two names.
func (r *Registry) Duplicates() []*Function {
	var out []*Function
	for _, fn := range r.funcs {
		if len(fn.Names) >= 2 {
			out = append(out, fn)
		}
	}
	return out
}

// Lookup returns the entry holding name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	for _, fn := range r.funcs {
		for _, n := range fn.Names {
			if n == name {
				return fn, true
			}
		}
	}
	return nil, false
}
