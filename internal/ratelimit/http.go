package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// SetHeaders writes the X-RateLimit-* headers, plus Retry-After when denied.
func SetHeaders(h http.Header, r Result) {
	if r.Limit <= 0 {
		return
	}
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
	if !r.Allowed() {
		h.Set("Retry-After", strconv.Itoa(r.RetryAfterSeconds()))
	}
}

// ClientIP is the first X-Forwarded-For entry, else the peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
