//go:build !windows

package tools

func registryVS7() (string, bool) {
	return "", false
}
