package elicitation

import "maps"

// NeedsElicitation reports whether any of the required parameters is
// missing. A parameter is missing when it is absent, nil or the empty
// string.
func NeedsElicitation(params map[string]any, required []string) bool {
	return len(Missing(params, required)) > 0
}

// Missing lists the required parameters absent from params, in the order
// given.
func Missing(params map[string]any, required []string) []string {
	var out []string
	for _, name := range required {
		if !present(params, name) {
			out = append(out, name)
		}
	}
	return out
}

// Merge combines caller-supplied params with elicited values. Supplied
// values that are present (not nil, not "") always win. Neither input is
// modified.
func Merge(params, elicited map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(elicited))
	maps.Copy(out, elicited)
	for k, v := range params {
		if present(params, k) {
			out[k] = v
		} else if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func present(params map[string]any, name string) bool {
	v, ok := params[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}
