package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Proxy headers checked in priority order.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP extracts the real client IP address from the request.
// Proxy headers are checked in priority order before falling back to
// RemoteAddr; the first valid address wins. If nothing validates, the raw
// RemoteAddr is returned unchanged.
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry a chain "client, proxy1, proxy2";
		// the leftmost entry is the original client.
		for _, candidate := range strings.Split(value, ",") {
			if ip := normalize(strings.TrimSpace(candidate)); ip != "" {
				return ip
			}
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if ip := normalize(host); ip != "" {
			return ip
		}
	}
	if ip := normalize(r.RemoteAddr); ip != "" {
		return ip
	}

	return r.RemoteAddr
}

// normalize validates the candidate and returns its canonical form, or ""
// when it is not a usable client address. Unspecified addresses (0.0.0.0,
// ::) signal "no valid client IP" and are rejected.
func normalize(candidate string) string {
	ip := net.ParseIP(candidate)
	if ip == nil {
		return ""
	}
	if ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
