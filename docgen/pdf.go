package docgen

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

const defaultPDFScale = 1.0

var pdfLengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

var pdfPageSizesInches = map[string]struct {
	width  float64
	height float64
}{
	"A3":     {width: 11.69, height: 16.54},
	"A4":     {width: 8.27, height: 11.69},
	"A5":     {width: 5.83, height: 8.27},
	"LETTER": {width: 8.5, height: 11},
	"LEGAL":  {width: 8.5, height: 14},
}

// DefaultPDFOptions returns the page geometry used when nothing is configured:
// A4 portrait, 20mm top/bottom and 15mm left/right margins, scale 1, backgrounds on.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:        "A4",
		Landscape:       BoolPtr(false),
		PrintBackground: BoolPtr(true),
		Scale:           defaultPDFScale,
		MarginTop:       "20mm",
		MarginRight:     "15mm",
		MarginBottom:    "20mm",
		MarginLeft:      "15mm",
	}
}

// PDFLayout is the resolved page geometry in inches, ready for a print call.
type PDFLayout struct {
	PaperWidth        float64
	PaperHeight       float64
	MarginTop         float64
	MarginBottom      float64
	MarginLeft        float64
	MarginRight       float64
	Scale             float64
	Landscape         bool
	PrintBackground   bool
	PreferCSSPageSize bool
	// HasPaperSize is false when the page size is left to CSS.
	HasPaperSize bool
}

// ResolvePDFLayout validates opts and converts lengths to inches.
func ResolvePDFLayout(opts PDFOptions) (PDFLayout, error) {
	layout := PDFLayout{Scale: opts.Scale}
	if layout.Scale == 0 {
		layout.Scale = defaultPDFScale
	}
	if layout.Scale < 0.1 || layout.Scale > 2.0 {
		return PDFLayout{}, NewError(KindValidation, "pdf scale must be between 0.1 and 2.0", nil)
	}
	if opts.Landscape != nil {
		layout.Landscape = *opts.Landscape
	}
	if opts.PrintBackground != nil {
		layout.PrintBackground = *opts.PrintBackground
	}

	if opts.PreferCSSPageSize != nil {
		layout.PreferCSSPageSize = *opts.PreferCSSPageSize
	} else if opts.PageSize == "" {
		layout.PreferCSSPageSize = true
	}

	if opts.PageSize != "" {
		size, ok := pdfPageSizesInches[strings.ToUpper(strings.TrimSpace(opts.PageSize))]
		if !ok {
			return PDFLayout{}, NewError(KindValidation, fmt.Sprintf("unsupported pdf page size: %s", opts.PageSize), nil)
		}
		layout.PaperWidth = size.width
		layout.PaperHeight = size.height
		layout.HasPaperSize = true
	}

	margins := []struct {
		value string
		dest  *float64
	}{
		{opts.MarginTop, &layout.MarginTop},
		{opts.MarginBottom, &layout.MarginBottom},
		{opts.MarginLeft, &layout.MarginLeft},
		{opts.MarginRight, &layout.MarginRight},
	}
	for _, m := range margins {
		if m.value == "" {
			continue
		}
		value, err := ParseLengthInches(m.value)
		if err != nil {
			return PDFLayout{}, err
		}
		*m.dest = value
	}

	return layout, nil
}

// MergePDFOptions overlays the non-zero fields of override onto base.
func MergePDFOptions(base, override PDFOptions) PDFOptions {
	merged := base
	if override.PageSize != "" {
		merged.PageSize = override.PageSize
	}
	if override.Landscape != nil {
		merged.Landscape = override.Landscape
	}
	if override.PrintBackground != nil {
		merged.PrintBackground = override.PrintBackground
	}
	if override.Scale != 0 {
		merged.Scale = override.Scale
	}
	if override.MarginTop != "" {
		merged.MarginTop = override.MarginTop
	}
	if override.MarginBottom != "" {
		merged.MarginBottom = override.MarginBottom
	}
	if override.MarginLeft != "" {
		merged.MarginLeft = override.MarginLeft
	}
	if override.MarginRight != "" {
		merged.MarginRight = override.MarginRight
	}
	if override.PreferCSSPageSize != nil {
		merged.PreferCSSPageSize = override.PreferCSSPageSize
	}
	if override.ViewportWidth > 0 && override.ViewportHeight > 0 {
		merged.ViewportWidth = override.ViewportWidth
		merged.ViewportHeight = override.ViewportHeight
	}
	if override.BaseURL != "" {
		merged.BaseURL = override.BaseURL
	}
	if override.ExternalAssetsPolicy != "" {
		merged.ExternalAssetsPolicy = override.ExternalAssetsPolicy
	}
	return merged
}

// ParseLengthInches parses a CSS-like length ("20mm", "1in", "72pt") into inches.
// A bare number is read as inches.
func ParseLengthInches(value string) (float64, error) {
	matches := pdfLengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, NewError(KindValidation, fmt.Sprintf("invalid length: %s", value), nil)
	}

	raw := matches[1]
	unit := strings.ToLower(matches[2])
	if unit == "" {
		unit = "in"
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewError(KindValidation, fmt.Sprintf("invalid length: %s", value), err)
	}

	switch unit {
	case "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / 96.0, nil
	default:
		return 0, NewError(KindValidation, fmt.Sprintf("unsupported length unit: %s", unit), nil)
	}
}

// LowerASCII folds A-Z only, so byte offsets found in the result index the
// input unchanged.
func LowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

// InjectBaseURL adds a <base> element so relative asset URLs resolve against baseURL.
// Documents that already declare a base are left alone.
func InjectBaseURL(htmlInput string, baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return htmlInput
	}

	lower := LowerASCII(htmlInput)
	if strings.Contains(lower, "<base") {
		return htmlInput
	}

	baseTag := fmt.Sprintf(`<base href="%s">`, html.EscapeString(baseURL))
	if headIdx := strings.Index(lower, "<head"); headIdx >= 0 {
		if end := strings.Index(lower[headIdx:], ">"); end >= 0 {
			insertPos := headIdx + end + 1
			return htmlInput[:insertPos] + baseTag + htmlInput[insertPos:]
		}
	}

	if htmlIdx := strings.Index(lower, "<html"); htmlIdx >= 0 {
		if end := strings.Index(lower[htmlIdx:], ">"); end >= 0 {
			insertPos := htmlIdx + end + 1
			return htmlInput[:insertPos] + "<head>" + baseTag + "</head>" + htmlInput[insertPos:]
		}
	}

	return baseTag + htmlInput
}

// BoolPtr returns a pointer to value.
func BoolPtr(value bool) *bool {
	return &value
}
