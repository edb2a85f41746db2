// Package docpdf renders HTML to PDF on pages borrowed from the shared engine
// handle. Each render opens its own page, waits for the content to settle, and
// prints it with the resolved page geometry.
package docpdf
