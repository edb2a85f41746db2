package docgen

import (
	"regexp"
	"strings"
)

// DefaultFilename is used when a request carries no usable filename.
const DefaultFilename = "document"

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// SanitizeFilename replaces every character outside [a-zA-Z0-9-_.] with an
// underscore and appends the format extension. The extension is appended even when
// the name already ends with it, so "a b/c.pdf" becomes "a_b_c.pdf.pdf".
func SanitizeFilename(name string, format Format) string {
	if strings.TrimSpace(name) == "" {
		name = DefaultFilename
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_") + "." + format.Extension()
}
