package observability

import (
	"net"
	"net/http"
	"strings"
)

const (
	deviceIDHeader  = "X-Device-Id"
	requestIDHeader = "X-Request-Id"
)

func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get(deviceIDHeader)
}

func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get(requestIDHeader)
}

// IPFromRequest prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the socket peer.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
