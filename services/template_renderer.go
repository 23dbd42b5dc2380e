package services

import (
	"fmt"
	"strings"
)

// RenderTemplate substitutes {key} placeholders with parameter values.
// Matching is case-insensitive on the placeholder name. Placeholders with no
// matching parameter are left verbatim; producers rely on that pass-through.
// If two parameter keys are case-variants of each other the last one iterated
// wins, which follows map iteration order.
func RenderTemplate(template string, params map[string]interface{}) string {
	result := template
	for key, value := range params {
		placeholder := "{" + key + "}"
		result = replaceInsensitive(result, placeholder, fmt.Sprintf("%v", value))
	}
	return result
}

// replaceInsensitive replaces every case-insensitive occurrence of old in s.
func replaceInsensitive(s, old, new string) string {
	if old == "" {
		return s
	}
	lower := strings.ToLower(s)
	target := strings.ToLower(old)

	var b strings.Builder
	start := 0
	for {
		idx := strings.Index(lower[start:], target)
		if idx < 0 {
			b.WriteString(s[start:])
			return b.String()
		}
		b.WriteString(s[start : start+idx])
		b.WriteString(new)
		start += idx + len(old)
	}
}
