package serialize

import (
	"fmt"
)

// Pick copies the keys named by st out of data. Nested structures descend
// into nested maps and lists of maps; every other rule copies the value
// as is. A key missing from data is an error. A nil structure picks
// nothing.
func Pick(data map[string]any, st *Structure) (Object, error) {
	out := newObject(st.Len())
	for _, key := range st.Keys() {
		v, ok := data[key]
		if !ok {
			return Object{}, &SerializationError{Entity: "map", Field: key, Err: ErrMissingField}
		}

		r, _ := st.Rule(key)
		nested, isNested := r.(*Structure)
		if !isNested || nested == nil {
			out.set(key, v)
			continue
		}

		picked, err := pickNested(v, nested)
		if err != nil {
			return Object{}, fmt.Errorf("%s: %w", key, err)
		}
		out.set(key, picked)
	}
	return out, nil
}

func pickNested(v any, st *Structure) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return Pick(t, st)
	case Object:
		return Pick(t.values, st)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			p, err := pickNested(e, st)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			p, err := Pick(e, st)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	default:
		return v, nil
	}
}
