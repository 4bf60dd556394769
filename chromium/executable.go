package chromium

import (
	"os"
	"os/exec"
	"path/filepath"
)

// executableNames are looked up in order in PATH, or as is when absolute.
func executableNames() []string {
	return []string{
		// Unix-like
		"headless_shell",
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"google-chrome-beta",
		"google-chrome-unstable",
		"/usr/bin/google-chrome",

		// Windows
		"chrome",
		"chrome.exe", // in case PATHEXT is misconfigured
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		filepath.Join(os.Getenv("USERPROFILE"), `AppData\Local\Google\Chrome\Application\chrome.exe`),

		// Mac
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	}
}

// findExecPath returns the first browser executable found on the system,
// or an empty string.
func findExecPath() string {
	for _, path := range executableNames() {
		if _, err := exec.LookPath(path); err == nil {
			return path
		}
	}

	return registryExecPath()
}
