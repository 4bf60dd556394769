package chromium

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/liuxd6825/cdpdriver/common"
)

func prepareFlags(lopts *common.LaunchOptions) map[string]any {
	// After Puppeteer's and Playwright's default behavior.
	f := map[string]any{
		"disable-background-networking":                      true,
		"enable-features":                                    "NetworkService,NetworkServiceInProcess",
		"disable-background-timer-throttling":                true,
		"disable-backgrounding-occluded-windows":             true,
		"disable-breakpad":                                   true,
		"disable-client-side-phishing-detection":             true,
		"disable-component-extensions-with-background-pages": true,
		"disable-default-apps":                               true,
		"disable-dev-shm-usage":                              true,
		"disable-features":                                   "TranslateUI,BlinkGenPropertyTrees",
		"disable-hang-monitor":                               true,
		"disable-ipc-flooding-protection":                    true,
		"disable-popup-blocking":                             true,
		"disable-prompt-on-repost":                           true,
		"disable-renderer-backgrounding":                     true,
		"disable-sync":                                       true,
		"force-color-profile":                                "srgb",
		"metrics-recording-only":                             true,
		"no-first-run":                                       true,
		"enable-automation":                                  true,
		"password-store":                                     "basic",
		"use-mock-keychain":                                  true,
		"no-service-autorun":                                 true,
		"no-default-browser-check":                           true,

		"disable-gpu":                 true,
		"enable-logging":              true,
		"log-level":                   "0",
		"disable-audio-output":        true,
		"auto-open-devtools-for-tabs": lopts.Devtools,
	}
	if len(lopts.Extensions) == 0 {
		f["disable-extensions"] = true
	} else {
		f["load-extension"] = strings.Join(lopts.Extensions, ",")
	}
	if lopts.Headless {
		f["headless"] = "new"
		f["hide-scrollbars"] = true
		f["mute-audio"] = true
	}
	if lopts.WindowSize != nil {
		f["window-size"] = fmt.Sprintf("%d,%d", lopts.WindowSize.Width, lopts.WindowSize.Height)
	}
	if !lopts.Sandbox {
		f["no-sandbox"] = true
		f["disable-setuid-sandbox"] = true
	}
	if lopts.Proxy.Server != "" {
		f["proxy-server"] = lopts.Proxy.Server
		if lopts.Proxy.Bypass != "" {
			f["proxy-bypass-list"] = lopts.Proxy.Bypass
		}
	}
	ignoreDefaultArgsFlags(f, lopts.IgnoreDefaultArgs)

	setFlagsFromArgs(f, lopts.Args)

	return f
}

// ignoreDefaultArgsFlags ignores any flags in the provided slice.
func ignoreDefaultArgsFlags(flags map[string]any, toIgnore []string) {
	for _, name := range toIgnore {
		delete(flags, strings.TrimPrefix(name, "--"))
	}
}

// setFlagsFromArgs fills flags by parsing the args slice.
// This is used for passing the "arg=value" arguments along with other launch options
// when launching a new Chrome browser.
func setFlagsFromArgs(flags map[string]any, args []string) {
	var argname, argval string
	for _, arg := range args {
		pair := strings.SplitN(arg, "=", 2)
		argname, argval = strings.TrimPrefix(strings.TrimSpace(pair[0]), "--"), ""
		if len(pair) > 1 {
			argval = trimQuotes(strings.TrimSpace(pair[1]))
		}
		flags[argname] = argval
	}
}

// parseArgs turns flags into command-line arguments, sorted by name.
func parseArgs(flags map[string]any) ([]string, error) {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, len(flags)+1)
	for _, name := range names {
		switch value := flags[name].(type) {
		case string:
			if value == "" {
				args = append(args, fmt.Sprintf("--%s", name))
				continue
			}
			args = append(args, fmt.Sprintf("--%s=%s", name, value))
		case bool:
			if value {
				args = append(args, fmt.Sprintf("--%s", name))
			}
		default:
			return nil, fmt.Errorf(`invalid browser command line flag: "%s=%v"`, name, value)
		}
	}
	if _, ok := flags["no-sandbox"]; !ok && os.Getuid() == 0 {
		// Running as root, for example in a Linux container. Chromium
		// needs --no-sandbox when running as root, so make that the
		// default, unless the user set "no-sandbox": false.
		args = append(args, "--no-sandbox")
	}

	return args, nil
}

// trimQuotes removes surrounding single or double quotes from s.
// We're not using strings.Trim() to avoid trimming unbalanced values,
// e.g. `"'arg` shouldn't change.
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if c := s[len(s)-1]; s[0] == c && (c == '"' || c == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
