// Package docapi holds the transport-agnostic conversion controller shared by the
// net/http and go-router adapters: routing, request decoding, CORS, error framing
// and download headers.
package docapi
