package docword

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"

	"github.com/goliatone/go-docgen/docgen"
)

const (
	documentPart  = "word/document.xml"
	twipsPerInch  = 1440
	DefaultMargin = "1in"
)

var (
	pgMarPattern  = regexp.MustCompile(`<w:pgMar\b[^>]*?/>`)
	sectPrPattern = regexp.MustCompile(`<w:sectPr\b[^>]*?>`)
)

// Margins are page margins in twips.
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// MarginsFromLengths parses CSS-like lengths into twips. Empty values fall back
// to DefaultMargin.
func MarginsFromLengths(top, right, bottom, left string) (Margins, error) {
	values := []string{top, right, bottom, left}
	twips := make([]int, len(values))
	for i, value := range values {
		inches, err := docgen.ParseLengthInches(orDefault(value, DefaultMargin))
		if err != nil {
			return Margins{}, err
		}
		twips[i] = int(math.Round(inches * twipsPerInch))
	}
	return Margins{Top: twips[0], Right: twips[1], Bottom: twips[2], Left: twips[3]}, nil
}

func (m Margins) element() string {
	return fmt.Sprintf(`<w:pgMar w:top="%d" w:right="%d" w:bottom="%d" w:left="%d" w:header="720" w:footer="720" w:gutter="0"/>`,
		m.Top, m.Right, m.Bottom, m.Left)
}

// SetPageMargins rewrites every section's page margins in a DOCX package. A
// section without margins gets them inserted.
func SetPageMargins(docx []byte, margins Margins) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		return nil, fmt.Errorf("open docx package: %w", err)
	}

	var out bytes.Buffer
	writer := zip.NewWriter(&out)
	found := false
	for _, file := range reader.File {
		if file.Name != documentPart {
			if err := writer.Copy(file); err != nil {
				return nil, fmt.Errorf("copy %s: %w", file.Name, err)
			}
			continue
		}
		found = true

		content, err := readZipFile(file)
		if err != nil {
			return nil, err
		}
		header := file.FileHeader
		w, err := writer.CreateHeader(&header)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", file.Name, err)
		}
		if _, err := w.Write(patchMargins(content, margins)); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close docx package: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("docx package has no %s", documentPart)
	}
	return out.Bytes(), nil
}

func patchMargins(document []byte, margins Margins) []byte {
	element := []byte(margins.element())
	if pgMarPattern.Match(document) {
		return pgMarPattern.ReplaceAllLiteral(document, element)
	}
	return sectPrPattern.ReplaceAllFunc(document, func(open []byte) []byte {
		var buf bytes.Buffer
		if bytes.HasSuffix(open, []byte("/>")) {
			buf.Write(bytes.TrimSuffix(open, []byte("/>")))
			buf.WriteByte('>')
			buf.Write(element)
			buf.WriteString("</w:sectPr>")
			return buf.Bytes()
		}
		buf.Write(open)
		buf.Write(element)
		return buf.Bytes()
	})
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	return content, nil
}
