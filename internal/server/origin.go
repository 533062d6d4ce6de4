package server

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// originCheck rejects API requests whose Origin or Referer header names a
// different host than the one being served. Requests without either header
// pass, and the check is relaxed for loopback hosts so local development
// over plain HTTP keeps working.
func originCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, header := range []string{"Origin", "Referer"} {
			raw := c.GetHeader(header)
			if raw == "" {
				continue
			}
			if !originAllowed(raw, c.Request.Host) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
				return
			}
		}
		c.Next()
	}
}

// originAllowed reports whether a raw Origin/Referer value matches the
// serving host.
func originAllowed(raw, requestHost string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := hostOnly(requestHost)
	if isLoopback(host) || isLoopback(u.Hostname()) {
		return true
	}
	return strings.EqualFold(u.Hostname(), host)
}

// hostOnly strips a port from a host:port value.
func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
