package document

import "maps"

// CopyRaw deep-copies raw stored data: nested maps and slices are copied,
// scalars are shared.
func CopyRaw(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, e := range t {
			out[k] = CopyRaw(e)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CopyRaw(e)
		}

		return out
	default:
		return v
	}
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CopyRaw(v)
	}

	return out
}

func cloneCriteria(c map[string]any) map[string]any {
	return maps.Clone(c)
}
