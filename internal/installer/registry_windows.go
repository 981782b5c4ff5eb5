//go:build windows

package installer

import "golang.org/x/sys/windows/registry"

// registryKeyExists opens HKCU\<key>; only a successful install writes it.
func registryKeyExists(key string) bool {
	k, err := registry.OpenKey(registry.CURRENT_USER, key, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	_ = k.Close()
	return true
}
