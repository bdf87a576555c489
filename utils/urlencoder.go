package utils

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ConvertFilename percent-encodes the base name of s for use in a URL path.
func ConvertFilename(s string) string {
	out := url.QueryEscape(filepath.Base(s))
	return strings.ReplaceAll(out, "+", "%20")
}
