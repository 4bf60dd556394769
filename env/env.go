// Package env provides types to interact with environment setup.
package env

import (
	"os"
	"strings"
)

const (
	// WebSocketURLs is the environment variable holding the websocket
	// endpoint(s) of an already running browser.
	WebSocketURLs = "CDPDRIVER_WS_URL"

	// LogLevel sets the level of the library logger.
	LogLevel = "CDPDRIVER_LOG"

	// LogCategoryFilter is a regular expression selecting logger categories.
	LogCategoryFilter = "CDPDRIVER_LOG_CATEGORY_FILTER"

	// ExecutablePath overrides executable discovery.
	ExecutablePath = "CDPDRIVER_EXECUTABLE_PATH"

	// ArtifactsOutput configures where screenshots and PDFs are persisted.
	// It holds a url=...,basePath=...,header.Name=value list; unset means
	// the local disk.
	ArtifactsOutput = "CDPDRIVER_ARTIFACTS_OUTPUT"

	// RevisionCache is the directory searched for downloaded browser revisions.
	RevisionCache = "CDPDRIVER_REVISION_CACHE"
)

// LookupFunc defines a function to look up a key from the environment.
type LookupFunc func(key string) (string, bool)

// EmptyLookup is a LookupFunc that always returns "" and false.
func EmptyLookup(_ string) (string, bool) { return "", false }

// Lookup is the default LookupFunc backed by the process environment.
func Lookup(key string) (string, bool) { return os.LookupEnv(key) }

// ConstLookup is a LookupFunc that returns the given value if the key
// matches k. Used in tests.
func ConstLookup(k, v string) LookupFunc {
	return func(key string) (string, bool) {
		if key == k {
			return v, true
		}
		return "", false
	}
}

// MapLookup is a LookupFunc backed by a map.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// IsRemoteBrowser returns true and the corresponding DevTools websocket
// URLs when set through CDPDRIVER_WS_URL. Otherwise returns false and nil.
//
// The variable holds a single URL or a comma separated list of URLs.
func IsRemoteBrowser(envLookup LookupFunc) ([]string, bool) {
	wsURL, isRemote := envLookup(WebSocketURLs)
	if !isRemote || strings.TrimSpace(wsURL) == "" {
		return nil, false
	}

	var urls []string
	for _, part := range strings.Split(wsURL, ",") {
		if part = strings.TrimSpace(part); part != "" {
			urls = append(urls, part)
		}
	}

	return urls, len(urls) > 0
}
