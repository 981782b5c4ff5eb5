package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"/":        "",
		"//":       "",
		"api":      "/api",
		"/api":     "/api",
		"/api/":    "/api",
		" api ":    "/api",
		"/a/b/":    "/a/b",
		"launcher": "/launcher",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeBase(in), "sanitizeBase(%q)", in)
	}
}

func TestIsValidAddress(t *testing.T) {
	valid := []string{"goon1.goonhub.com:26100", "127.0.0.1:5000", "[::1]:80", "localhost:65535"}
	invalid := []string{"", "goon1.goonhub.com", ":26100", "host:", "host:0", "host:70000", "host:port", "a b:1", "host:1;rm", "$(x):1"}
	for _, s := range valid {
		assert.True(t, isValidAddress(s), "expected valid address %q", s)
	}
	for _, s := range invalid {
		assert.False(t, isValidAddress(s), "expected invalid address %q", s)
	}
}

func TestIsSafeAbsPath(t *testing.T) {
	dir := t.TempDir()
	sep := string(filepath.Separator)

	assert.True(t, isSafeAbsPath(""), "empty means default")
	assert.True(t, isSafeAbsPath(dir))
	assert.True(t, isSafeAbsPath(dir+sep), "trailing separator")
	assert.False(t, isSafeAbsPath("bin"+sep+"dd.exe"), "relative")
	assert.False(t, isSafeAbsPath(dir+sep+".."+sep+"etc"), "traversal")
	assert.False(t, isSafeAbsPath(dir+sep+"."+sep+"bin"), "dot segment")
}

func TestWriteJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { writeJSON(c, http.StatusCreated, map[string]any{"a": 1}) })
	r.GET("/bad", func(c *gin.Context) { badRequest(c, "nope") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	assert.JSONEq(t, `{"a":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
}
