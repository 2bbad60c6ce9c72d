package embed

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"wildcard accepts subdomain", "https://shop.example.com", []string{"*.example.com"}, true},
		{"wildcard accepts nested subdomain", "https://a.b.example.com", []string{"*.example.com"}, true},
		{"wildcard rejects other domain", "https://example.org", []string{"*.example.com"}, false},
		{"wildcard rejects bare suffix", "https://example.com", []string{"*.example.com"}, false},
		{"wildcard rejects suffix lookalike", "https://evilexample.com", []string{"*.example.com"}, false},
		{"exact match", "https://widgets.example.com", []string{"widgets.example.com"}, true},
		{"exact match rejects subdomain", "https://a.widgets.example.com", []string{"widgets.example.com"}, false},
		{"case insensitive", "https://Shop.Example.COM", []string{"*.example.com"}, true},
		{"port ignored", "https://shop.example.com:8443", []string{"*.example.com"}, true},
		{"multiple entries", "https://example.org", []string{"*.example.com", "example.org"}, true},
		{"empty allow-list denies", "https://shop.example.com", nil, false},
		{"empty origin denies", "", []string{"*.example.com"}, false},
		{"bare host origin", "shop.example.com", []string{"*.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OriginAllowed(tt.origin, tt.allowed))
		})
	}
}

func TestRequestOriginPrefersOriginHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "/embed/forms/abc", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Referer", "https://other.example.org/page")

	assert.Equal(t, "https://shop.example.com", RequestOrigin(req))
}

func TestRequestOriginFallsBackToReferer(t *testing.T) {
	req := httptest.NewRequest("POST", "/embed/forms/abc", nil)
	req.Header.Set("Referer", "https://shop.example.com/checkout")

	assert.Equal(t, "https://shop.example.com/checkout", RequestOrigin(req))
	assert.True(t, OriginAllowed(RequestOrigin(req), []string{"*.example.com"}))
}
