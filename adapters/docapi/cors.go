package docapi

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "Content-Type,Authorization"
	corsMaxAge       = "600"
)

// CORSPolicy decides which browser origins may call the API. Entries are exact
// origins ("https://app.example.com"), host suffixes ("*.example.com" or
// ".example.com") or "*" for any origin.
type CORSPolicy struct {
	AllowedOrigins []string
}

// AllowAll reports whether the policy contains the "*" wildcard.
func (p CORSPolicy) AllowAll() bool {
	for _, origin := range p.AllowedOrigins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

// Allows reports whether origin matches the policy.
func (p CORSPolicy) Allows(origin string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	host := originHost(origin)
	for _, entry := range p.AllowedOrigins {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
			continue
		case entry == "*":
			return true
		case strings.HasPrefix(entry, "*."):
			if matchesSuffix(host, entry[1:]) {
				return true
			}
		case strings.HasPrefix(entry, "."):
			if matchesSuffix(host, entry) {
				return true
			}
		case strings.EqualFold(strings.TrimRight(entry, "/"), origin):
			return true
		}
	}
	return false
}

// Apply sets the CORS response headers for req. It reports true when req was a
// preflight that has been fully answered.
func (p CORSPolicy) Apply(req Request, res Response) bool {
	origin := req.Header("Origin")
	allowed := p.Allows(origin)
	if allowed {
		if p.AllowAll() {
			res.SetHeader("Access-Control-Allow-Origin", "*")
		} else {
			res.SetHeader("Access-Control-Allow-Origin", origin)
			res.SetHeader("Vary", "Origin")
		}
		res.SetHeader("Access-Control-Expose-Headers", "Content-Disposition,X-Request-Id")
	}

	if req.Method() != http.MethodOptions {
		return false
	}
	if allowed {
		res.SetHeader("Access-Control-Allow-Methods", corsAllowMethods)
		res.SetHeader("Access-Control-Allow-Headers", corsAllowHeaders)
		res.SetHeader("Access-Control-Max-Age", corsMaxAge)
	}
	res.WriteHeader(http.StatusNoContent)
	return true
}

// matchesSuffix matches host against ".example.com". The apex itself does not match.
func matchesSuffix(host, suffix string) bool {
	return host != "" && strings.HasSuffix(host, strings.ToLower(suffix))
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
