package server

import (
	"net"
	"strings"
	"testing"
)

// FuzzIsValidAddress checks that accepted addresses always split into a host
// and port and never carry shell metacharacters.
func FuzzIsValidAddress(f *testing.F) {
	f.Add("goon1.goonhub.com:26100")
	f.Add("")
	f.Add(":")
	f.Add("[::1]:8080")
	f.Add("host:99999")
	f.Add("host:1; rm -rf /")
	f.Add("unicode한글:1")
	f.Add("name\x00null:1")

	f.Fuzz(func(t *testing.T, addr string) {
		if len(addr) > 256 {
			t.Skip("address too long")
		}
		if !isValidAddress(addr) {
			return
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil || host == "" || port == "" {
			t.Fatalf("accepted address %q does not split: %v", addr, err)
		}
		if strings.ContainsAny(addr, " ;&|$`") {
			t.Fatalf("accepted address %q contains metacharacters", addr)
		}
	})
}

// FuzzSanitizeBase checks sanitizeBase output shape.
func FuzzSanitizeBase(f *testing.F) {
	f.Add("")
	f.Add("/")
	f.Add("api/")
	f.Add("//api//")
	f.Fuzz(func(t *testing.T, in string) {
		out := sanitizeBase(in)
		if out == "" {
			return
		}
		if !strings.HasPrefix(out, "/") {
			t.Fatalf("sanitizeBase(%q) = %q lacks leading slash", in, out)
		}
		if strings.HasSuffix(out, "/") {
			t.Fatalf("sanitizeBase(%q) = %q has trailing slash", in, out)
		}
	})
}
