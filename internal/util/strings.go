package util

// UniqueNonEmpty returns the non-empty strings of s without duplicates,
// preserving first-seen order. Returns nil when nothing remains.
func UniqueNonEmpty(s []string) []string {
	var result []string
	seen := make(map[string]struct{}, len(s))
	for _, v := range s {
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
