package tenant

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHost reduces free-form input ("https://www.Shop.example.com:8443/path") to the
// registry form ("shop.example.com"): lowercase, no scheme, userinfo, path, query, port,
// trailing dot or leading "www.". Internationalized names are converted to their ASCII form.
// It reports false when nothing usable remains.
func NormalizeHost(input string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if at := strings.LastIndex(s, "@"); at >= 0 {
		s = s[at+1:]
	}

	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return "", false
		}
		s = s[1:end]
	} else if colon := strings.IndexByte(s, ':'); colon >= 0 {
		s = s[:colon]
	}

	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", false
	}

	if ip := net.ParseIP(s); ip != nil {
		return ip.String(), true
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" {
			return "", false
		}
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil || ascii == "" {
		return "", false
	}
	return ascii, true
}

// HostFromOrigin extracts the normalized hostname of an Origin header value. Opaque origins
// ("null"), relative values and unparsable input report false.
func HostFromOrigin(origin string) (string, bool) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", false
	}

	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return NormalizeHost(u.Host)
}
