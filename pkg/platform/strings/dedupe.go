// Package strings holds small helpers for list-valued settings.
package strings

import "strings"

// DedupeAndTrim trims every element and drops empties and repeats, keeping
// first-seen order.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// SplitList splits a comma separated setting such as KAFKA_BROKERS.
// An empty or all-blank input yields nil.
func SplitList(s string) []string {
	out := DedupeAndTrim(strings.Split(s, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
