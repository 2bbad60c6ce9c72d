// Package embed gates the public embeddable endpoints (forms, reviews,
// shop) on the embedding entity's allow-listed domains.
package embed

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginAllowed reports whether the origin (a URL such as
// "https://shop.example.com") matches the allow-list. Entries are either
// exact hosts or "*.suffix" wildcards. A wildcard matches any subdomain of
// the suffix but not the bare suffix itself. An empty allow-list denies
// everything.
func OriginAllowed(origin string, allowedDomains []string) bool {
	if origin == "" || len(allowedDomains) == 0 {
		return false
	}

	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	host = strings.ToLower(host)

	for _, domain := range allowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if suffix, ok := strings.CutPrefix(domain, "*."); ok {
			if strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == domain {
			return true
		}
	}
	return false
}

// RequestOrigin extracts the embedding page's origin from the request,
// preferring the Origin header and falling back to Referer.
func RequestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return r.Header.Get("Referer")
}
