// Package docchromium drives a headless Chromium through chromedp and exposes it
// as an engine.Launcher for the go-docgen engine handle.
package docchromium
