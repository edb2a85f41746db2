package docgen

import "strings"

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// NormalizeFormat coerces format values into known aliases.
func NormalizeFormat(format Format) Format {
	normalized := strings.ToLower(strings.TrimSpace(string(format)))
	switch normalized {
	case "", string(FormatPDF):
		return FormatPDF
	case "word", "msword", string(FormatDOCX):
		return FormatDOCX
	default:
		return Format(normalized)
	}
}

// ContentType returns the MIME type for format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return ContentTypePDF
	case FormatDOCX:
		return ContentTypeDOCX
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension for format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Valid reports whether f is a supported output format.
func (f Format) Valid() bool {
	return f == FormatPDF || f == FormatDOCX
}
