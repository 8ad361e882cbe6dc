package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// ParamPrefix starts every template parameter token.
const ParamPrefix = "@"

// Substitute replaces every @key token in template with fmt.Sprint of its
// value. Keys must carry the @ prefix. Longer keys are replaced first so
// that @region does not eat the front of @region_code.
func Substitute(template string, params map[string]any) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !strings.HasPrefix(k, ParamPrefix) || len(k) == len(ParamPrefix) {
			return "", fmt.Errorf("parameter %q: %w", k, ErrInvalidParameterName)
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, k, fmt.Sprint(params[k]))
	}
	return out, nil
}
