package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRedirectURIs(t *testing.T) {
	loopback := func(scheme, port string) []string {
		return []string{
			scheme + "://localhost:" + port + "/app/login/callback",
			scheme + "://127.0.0.1:" + port + "/app/login/callback",
			scheme + "://0.0.0.0:" + port + "/app/login/callback",
		}
	}

	tests := []struct {
		name   string
		host   string
		scheme string
		port   int
		want   []string
	}{
		{name: "any address", host: "0.0.0.0", scheme: "http", port: 8080, want: loopback("http", "8080")},
		{name: "localhost", host: "localhost", scheme: "http", port: 1135, want: loopback("http", "1135")},
		{name: "ipv4 loopback", host: "127.0.0.1", scheme: "https", port: 443, want: loopback("https", "443")},
		{name: "public host", host: "example.com", scheme: "https", port: 443, want: []string{"https://example.com:443/app/login/callback"}},
		{name: "lan address", host: "192.168.1.10", scheme: "http", port: 1135, want: []string{"http://192.168.1.10:1135/app/login/callback"}},
		{name: "ipv6 host", host: "fd00::1", scheme: "http", port: 80, want: []string{"http://[fd00::1]:80/app/login/callback"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildRedirectURIs(tt.host, tt.scheme, tt.port))
		})
	}
}

func TestBuildRedirectURIs_FreshSlice(t *testing.T) {
	a := BuildRedirectURIs("localhost", "http", 1)
	a[0] = "mutated"
	b := BuildRedirectURIs("localhost", "http", 1)
	assert.Equal(t, "http://localhost:1/app/login/callback", b[0])
}
