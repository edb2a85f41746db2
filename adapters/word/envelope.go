package docword

import (
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-docgen/docgen"
)

const envelopeSource = `<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:w="urn:schemas-microsoft-com:office:word" xmlns="http://www.w3.org/TR/REC-html40">
<head>
<meta charset="utf-8">
<title>{{ title }}</title>
<!--[if gte mso 9]><xml><w:WordDocument><w:View>Print</w:View><w:Zoom>100</w:Zoom><w:DoNotOptimizeForBrowser/></w:WordDocument></xml><![endif]-->
<style>
@page WordSection1 { margin: {{ margin_top }} {{ margin_right }} {{ margin_bottom }} {{ margin_left }}; mso-header-margin: 0.5in; mso-footer-margin: 0.5in; mso-paper-source: 0; }
div.WordSection1 { page: WordSection1; }
mark, .highlight { background: yellow; mso-highlight: yellow; }
table { border-collapse: collapse; mso-table-lspace: 0pt; mso-table-rspace: 0pt; }
td, th { border: 1px solid #000000; mso-border-alt: solid windowtext .5pt; padding: 4px; }
</style>
</head>
<body>
<div class="WordSection1">
{{ body|safe }}
</div>
</body>
</html>
`

var envelopeTemplate = pongo2.Must(pongo2.FromString(envelopeSource))

// Envelope holds the values substituted into the Word envelope.
type Envelope struct {
	Title        string
	MarginTop    string
	MarginRight  string
	MarginBottom string
	MarginLeft   string
}

// WrapWordEnvelope wraps html in the Word compatibility envelope. When html is a
// full document only the contents of its body element are used.
func WrapWordEnvelope(html string, env Envelope) (string, error) {
	return envelopeTemplate.Execute(pongo2.Context{
		"title":         env.Title,
		"margin_top":    orDefault(env.MarginTop, DefaultMargin),
		"margin_right":  orDefault(env.MarginRight, DefaultMargin),
		"margin_bottom": orDefault(env.MarginBottom, DefaultMargin),
		"margin_left":   orDefault(env.MarginLeft, DefaultMargin),
		"body":          bodyContent(html),
	})
}

func bodyContent(html string) string {
	lower := docgen.LowerASCII(html)
	start := strings.Index(lower, "<body")
	if start < 0 {
		return html
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return html
	}
	contentStart := start + open + 1
	end := strings.LastIndex(lower, "</body>")
	if end < contentStart {
		return html[contentStart:]
	}
	return html[contentStart:end]
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
