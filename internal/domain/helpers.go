package domain

import "strings"

// NormalizeTag strips the conventional release prefix so "v1.2.3" and
// "1.2.3" identify the same version.
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "v")
}

func SameTag(a, b string) bool {
	return NormalizeTag(a) == NormalizeTag(b)
}
