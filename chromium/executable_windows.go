//go:build windows

package chromium

import (
	"golang.org/x/sys/windows/registry"
)

const chromeAppPathKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths\chrome.exe`

// registryExecPath reads the path Chrome's installer registered.
func registryExecPath() string {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, chromeAppPathKey, registry.QUERY_VALUE)
	if err != nil {
		return ""
	}
	defer k.Close() //nolint:errcheck

	path, _, err := k.GetStringValue("")
	if err != nil {
		return ""
	}

	return path
}
