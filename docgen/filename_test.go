package docgen

import "testing"

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		want   string
	}{
		{"a b/c.pdf", FormatPDF, "a_b_c.pdf.pdf"},
		{"report", FormatPDF, "report.pdf"},
		{"report", FormatDOCX, "report.docx"},
		{"", FormatPDF, "document.pdf"},
		{"   ", FormatDOCX, "document.docx"},
		{"Q3-results_v2.final", FormatPDF, "Q3-results_v2.final.pdf"},
		{"résumé", FormatPDF, "r_sum_.pdf"},
		{`../../etc/passwd`, FormatPDF, ".._.._etc_passwd.pdf"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.name, tc.format); got != tc.want {
			t.Fatalf("sanitize %q: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if FormatPDF.ContentType() != "application/pdf" {
		t.Fatalf("unexpected pdf content type")
	}
	if FormatDOCX.ContentType() != ContentTypeDOCX {
		t.Fatalf("unexpected docx content type")
	}
	if NormalizeFormat("") != FormatPDF || NormalizeFormat(" Word ") != FormatDOCX {
		t.Fatalf("unexpected normalization")
	}
	if Format("xlsx").Valid() {
		t.Fatalf("xlsx should not be valid")
	}
}
