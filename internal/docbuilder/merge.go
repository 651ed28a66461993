package docbuilder

import "fmt"

// smartMerge combines two composite sub-documents into one, per §4.3:
// null absorbs into the other value, arrays concatenate and dedup,
// maps merge key-by-key, and two scalars combine into an array.
// Incompatible combinations (e.g. a map and a scalar) are a fatal
// per-document build error.
func smartMerge(a, b Document) (Document, error) {
	out := Document{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			merged, err := mergeValue(existing, v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = merged
		} else {
			out[k] = v
		}
	}
	return out, nil
}

func mergeValue(a, b interface{}) (interface{}, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}

	switch av := a.(type) {
	case Document:
		bv, ok := b.(Document)
		if !ok {
			return nil, fmt.Errorf("cannot merge object with %T", b)
		}
		return smartMerge(av, bv)
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cannot merge object with %T", b)
		}
		merged, err := smartMerge(Document(av), Document(bv))
		return map[string]interface{}(merged), err
	case []interface{}:
		return dedupAppend(av, toSlice(b)...), nil
	default:
		switch b.(type) {
		case Document, map[string]interface{}:
			return nil, fmt.Errorf("cannot merge scalar with object")
		}
		if bv, ok := b.([]interface{}); ok {
			return dedupAppend(toSlice(a), bv...), nil
		}
		if equalScalar(a, b) {
			return a, nil
		}
		return []interface{}{a, b}, nil
	}
}

func toSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return []interface{}{v}
}

func dedupAppend(base []interface{}, add ...interface{}) []interface{} {
	out := append([]interface{}{}, base...)
	for _, v := range add {
		dup := false
		for _, existing := range out {
			if equalScalar(existing, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func equalScalar(a, b interface{}) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
