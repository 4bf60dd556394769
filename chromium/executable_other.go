//go:build !windows

package chromium

func registryExecPath() string {
	return ""
}
