// Package toolutil provides small input helpers shared by the REST handlers
// and the MCP tools.
package toolutil

import (
	"strings"
	"unicode"
)

// SplitLinks splits free-form input (newlines, commas, spaces) into distinct
// non-empty links, preserving order.
func SplitLinks(raw ...string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range raw {
		fields := strings.FieldsFunc(r, func(c rune) bool {
			return c == ',' || c == ';' || unicode.IsSpace(c)
		})
		for _, f := range fields {
			f = strings.Trim(f, `"'<>`)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// ClampLimit returns def for n <= 0 and max for n > max.
func ClampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// SplitIDs parses a comma-separated id list such as ?ids=a,b.
func SplitIDs(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
