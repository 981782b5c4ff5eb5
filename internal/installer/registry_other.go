//go:build !windows

package installer

// No configuration store outside Windows; the path probe decides alone.
func registryKeyExists(string) bool { return false }
