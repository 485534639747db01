package sandbox

import "go.starlark.net/starlark"

// FromStarlark converts a guest value into plain Go data. Scalars map to
// their Go equivalents, sequences to []any, dicts to map[string]any; values
// with no natural mapping fall back to their string form.
func FromStarlark(v starlark.Value) any {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(v)
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i
		}
		return v.String()
	case starlark.Float:
		return float64(v)
	case starlark.String:
		return string(v)
	case *starlark.List:
		return fromIterable(v)
	case starlark.Tuple:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = FromStarlark(item)
		}
		return out
	case *starlark.Set:
		return fromIterable(v)
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			out[key] = FromStarlark(item[1])
		}
		return out
	default:
		return v.String()
	}
}

func fromIterable(it starlark.Iterable) []any {
	iter := it.Iterate()
	defer iter.Done()
	out := []any{}
	var x starlark.Value
	for iter.Next(&x) {
		out = append(out, FromStarlark(x))
	}
	return out
}
