package query

import (
	"net/http"
	"strings"

	"github.com/fieldlens/fieldlens/internal/fieldpath"
)

// FieldsParam selects the fields a response should include.
const FieldsParam = "fields"

// OmitParam excludes fields from a response.
const OmitParam = "omit"

// ParseFields parses the fields query parameter into relation paths.
// Example: ?fields=name,school__district returns [["name"], ["school", "district"]]
// Returns nil if the parameter is not present.
func ParseFields(r *http.Request) []fieldpath.Path {
	return parsePaths(r, FieldsParam)
}

// ParseOmit parses the omit query parameter into relation paths.
// Returns nil if the parameter is not present.
func ParseOmit(r *http.Request) []fieldpath.Path {
	return parsePaths(r, OmitParam)
}

// parsePaths collects every instance of a comma-separated path parameter.
// Example: ?fields=a,b&fields=c is equivalent to ?fields=a,b,c
func parsePaths(r *http.Request, name string) []fieldpath.Path {
	var result []fieldpath.Path
	for _, value := range r.URL.Query()[name] {
		for _, raw := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}
			result = append(result, fieldpath.Parse(trimmed)...)
		}
	}
	return result
}
