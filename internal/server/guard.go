package server

import (
	"mime"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// originGuard rejects browser requests from pages other than the local UI.
// Requests without an Origin header (CLI, embedded clients) pass.
func originGuard(allowed []string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = normalizeOrigin(o); o != "" {
			set[o] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if _, ok := set[normalizeOrigin(origin)]; ok || isLoopbackOrigin(origin) {
			c.Next()
			return
		}
		writeJSON(c, http.StatusForbidden, errorResp{Error: "origin not allowed"})
		c.Abort()
	}
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// jsonOnly requires application/json on requests that carry a body, which
// forces browsers into a CORS preflight the API never answers.
func jsonOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
		if err != nil || mt != "application/json" {
			writeJSON(c, http.StatusUnsupportedMediaType, errorResp{Error: "content type must be application/json"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// isWithinDir reports whether p resolves to a location below dir.
func isWithinDir(dir, p string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(p))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
