package setup

import (
	"fmt"
	"net"
	"strconv"
)

// CallbackPath is the login callback route registered with the identity
// provider.
const CallbackPath = "/app/login/callback"

// loopbackHosts are interchangeable names for the local machine, in the
// order their redirect URIs are registered.
var loopbackHosts = []string{"localhost", "127.0.0.1", "0.0.0.0"}

// BuildRedirectURIs returns the callback URIs to register for the server at
// host:port. A loopback host expands to every loopback alias so the browser
// can reach the app under any of them.
func BuildRedirectURIs(host, scheme string, port int) []string {
	hosts := []string{host}
	if isLoopback(host) {
		hosts = loopbackHosts
	}

	uris := make([]string, 0, len(hosts))
	for _, h := range hosts {
		uris = append(uris, fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(h, strconv.Itoa(port)), CallbackPath))
	}
	return uris
}

func isLoopback(host string) bool {
	for _, h := range loopbackHosts {
		if h == host {
			return true
		}
	}
	return false
}
