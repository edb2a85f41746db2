// Package docword converts HTML to DOCX with the pandoc CLI.
//
// Input can optionally be wrapped in a Word compatibility envelope first
// (Office namespaces, WordDocument settings, @page margins, highlight and table
// border rules). The envelope is a fixed pongo2 template; the HTML itself is never
// parsed. After conversion, the section page margins of the produced package are
// set to the configured values.
package docword
