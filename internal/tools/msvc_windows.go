//go:build windows

package tools

import "golang.org/x/sys/windows/registry"

const vs7Key = `SOFTWARE\WOW6432Node\Microsoft\VisualStudio\SxS\VS7`

func registryVS7() (string, bool) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, vs7Key, registry.QUERY_VALUE)
	if err != nil {
		return "", false
	}
	defer key.Close()

	names, err := key.ReadValueNames(0)
	if err != nil {
		return "", false
	}
	values := make(map[string]string, len(names))
	for _, name := range names {
		if path, _, err := key.GetStringValue(name); err == nil {
			values[name] = path
		}
	}
	return pickVS7(values)
}
