// Package docrod is an alternate engine driver built on go-rod. It launches the
// same browser flags as the chromedp driver and watches the launched process to
// detect disconnects.
package docrod
