package api

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		proxies    []netip.Prefix
		want       string
	}{
		{
			name:       "NoProxyHeadersUsesRemoteAddr",
			remoteAddr: "192.0.2.7:4321",
			want:       "192.0.2.7",
		},
		{
			name:       "HeadersIgnoredWithoutTrustedProxies",
			remoteAddr: "192.0.2.7:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "192.0.2.7",
		},
		{
			name:       "HeadersIgnoredFromUntrustedPeer",
			remoteAddr: "192.0.2.7:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			proxies:    trusted,
			want:       "192.0.2.7",
		},
		{
			name:       "XForwardedForFromTrustedProxy",
			remoteAddr: "10.1.2.3:4321",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.1.2.3"},
			proxies:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "ForwardedHeaderFromTrustedProxy",
			remoteAddr: "10.1.2.3:4321",
			headers:    map[string]string{"Forwarded": `for="203.0.113.9";proto=https`},
			proxies:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "XRealIPFromTrustedProxy",
			remoteAddr: "10.1.2.3:4321",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			proxies:    trusted,
			want:       "203.0.113.9",
		},
		{
			name:       "IPv6WithPort",
			remoteAddr: "[2001:db8::1]:4321",
			want:       "2001:db8::1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			got := extractClientIPWithProxies(r, tc.proxies)
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies("10.0.0.0/8, 192.0.2.1")
	if err != nil {
		t.Fatalf("ParseTrustedProxies failed: %v", err)
	}
	if len(prefixes) != 2 {
		t.Fatalf("expected 2 prefixes, got %d", len(prefixes))
	}
	if !prefixes[0].Contains(netip.MustParseAddr("10.9.9.9")) {
		t.Error("10.9.9.9 should fall inside 10.0.0.0/8")
	}
	if !prefixes[1].Contains(netip.MustParseAddr("192.0.2.1")) {
		t.Error("bare address should parse as a single-host prefix")
	}

	if _, err := ParseTrustedProxies("not-an-ip"); err == nil {
		t.Error("expected error for invalid input")
	}
}
