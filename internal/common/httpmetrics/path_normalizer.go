package httpmetrics

import (
	"regexp"
	"strings"
)

var uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// NormalizePath collapses identifiers so metric label cardinality stays bounded.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}

	parts := strings.Split(uuidRegex.ReplaceAllString(path, "{id}"), "/")
	for i, part := range parts {
		if part != "" && part != "{id}" && isNumeric(part) {
			parts[i] = "{id}"
		}
	}

	if result := strings.Join(parts, "/"); result != "" {
		return result
	}
	return "/"
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
