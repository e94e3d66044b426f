package aggregator

import (
	"maps"
	"slices"
)

// FilterSpec selects records whose field equals the given value. Fields are
// AND-combined; an empty spec selects everything.
type FilterSpec map[Field]string

// Without returns a copy of the spec with the named fields removed.
func (s FilterSpec) Without(fields ...Field) FilterSpec {
	out := maps.Clone(s)
	if out == nil {
		out = FilterSpec{}
	}
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Strings renders the spec with plain string keys, for JSON responses.
func (s FilterSpec) Strings() map[string]string {
	out := make(map[string]string, len(s))
	for f, v := range s {
		out[string(f)] = v
	}
	return out
}

// Filter returns the rows of view matching every predicate in spec, keeping
// their original order. The source view and its table are left untouched.
func Filter(view View, spec FilterSpec) View {
	if len(spec) == 0 {
		return View{table: view.table, indices: view.Indices()}
	}

	fields := slices.Sorted(maps.Keys(spec))

	indices := make([]int, 0, view.Len())
	for i := 0; i < view.Len(); i++ {
		pass := true
		for _, f := range fields {
			if view.Dimension(i, f) != spec[f] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, view.indices[i])
		}
	}

	return View{table: view.table, indices: indices}
}
