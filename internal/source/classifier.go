// Package source classifies pasted spreadsheet links and fetches their content.
package source

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPathIndex is the element of the "/"-split URL that carries the host marker.
// For "https://host/file/d/abc/view" element 3 is "file".
const DefaultPathIndex = 3

// ErrUnsupportedSourceType is returned when no rule matches a URL.
var ErrUnsupportedSourceType = errors.New("unsupported source type")

// Rule maps a path marker to the extension of the document it links to.
type Rule struct {
	Marker    string
	Extension string
}

// DefaultRules returns the cloud spreadsheet and generic file-hosting markers.
func DefaultRules() []Rule {
	return []Rule{
		{Marker: "spreadsheets", Extension: "xlsx"},
		{Marker: "file", Extension: "csv"},
	}
}

// Classifier decides the file type of a remote URL from a fixed path segment.
type Classifier struct {
	pathIndex int
	rules     []Rule
}

// NewClassifier creates a classifier. A non-positive pathIndex uses DefaultPathIndex,
// and an empty rule list uses DefaultRules.
func NewClassifier(pathIndex int, rules []Rule) *Classifier {
	if pathIndex <= 0 {
		pathIndex = DefaultPathIndex
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{
		pathIndex: pathIndex,
		rules:     append([]Rule(nil), rules...),
	}
}

// Classify returns the extension for raw, or ErrUnsupportedSourceType.
// The raw string is split on "/" as-is, without URL parsing.
func (c *Classifier) Classify(raw string) (string, error) {
	parts := strings.Split(raw, "/")
	if len(parts) <= c.pathIndex {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSourceType, raw)
	}

	segment := parts[c.pathIndex]
	for _, r := range c.rules {
		if segment == r.Marker {
			return r.Extension, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSourceType, raw)
}

// Rules returns a copy of the configured rules.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// BlobName returns the name given to a fetched document.
func BlobName(ext string) string {
	return "data." + ext
}

// MediaTypeFor returns the media type declared for a fetched document.
func MediaTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case "csv":
		return "text/csv"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "xls":
		return "application/vnd.ms-excel"
	default:
		return "application/octet-stream"
	}
}
