package chromium

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/liuxd6825/cdpdriver/common"
	"github.com/liuxd6825/cdpdriver/env"
	"github.com/liuxd6825/cdpdriver/log"
)

// BrowserType provides methods to launch a Chrome browser instance or connect to an existing one.
// It's the entry point for interacting with the browser.
type BrowserType struct {
	logger    *log.Logger
	envLookup env.LookupFunc
	allocator *Allocator

	execMu   sync.Mutex
	execPath string // path to the Chromium executable
}

// NewBrowserType returns a new Chrome browser type.
func NewBrowserType(logger *log.Logger, envLookup env.LookupFunc) *BrowserType {
	if envLookup == nil {
		envLookup = env.EmptyLookup
	}
	return &BrowserType{
		logger:    logger,
		envLookup: envLookup,
		allocator: NewAllocator(logger),
	}
}

// Name returns the name of this browser type.
func (b *BrowserType) Name() string {
	return "chromium"
}

// Launch starts a browser and connects to it.
func (b *BrowserType) Launch(ctx context.Context, opts *common.LaunchOptions) (*common.Browser, error) {
	browserProc, err := b.Allocate(ctx, opts)
	if err != nil {
		return nil, err
	}

	browser, err := common.NewBrowser(ctx, browserProc, opts, b.logger)
	if err != nil {
		browserProc.Close()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	return browser, nil
}

// Allocate starts a browser process without connecting to it.
func (b *BrowserType) Allocate(ctx context.Context, opts *common.LaunchOptions) (*common.BrowserProcess, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid launch options: %w", err)
	}
	path, err := b.resolveExecutable(ctx, opts)
	if err != nil {
		return nil, err
	}

	return b.allocator.Allocate(ctx, path, opts)
}

// Connect attaches to an already running browser. An empty wsURL is read
// from the environment.
func (b *BrowserType) Connect(ctx context.Context, wsURL string, opts *common.LaunchOptions) (*common.Browser, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid launch options: %w", err)
	}
	if wsURL == "" {
		urls, ok := env.IsRemoteBrowser(b.envLookup)
		if !ok {
			return nil, fmt.Errorf("connecting to browser: no endpoint given and %s is not set", env.WebSocketURLs)
		}
		wsURL = urls[0]
	}

	return common.ConnectBrowser(ctx, wsURL, opts, b.logger) //nolint:wrapcheck
}

func (b *BrowserType) resolveExecutable(ctx context.Context, opts *common.LaunchOptions) (string, error) {
	if opts.ExecutablePath != "" {
		return opts.ExecutablePath, nil
	}
	if p, ok := b.envLookup(env.ExecutablePath); ok && p != "" {
		return p, nil
	}
	if p := b.ExecutablePath(); p != "" {
		return p, nil
	}

	var errs []error
	resolvers := []common.ExecutableResolver{}
	if opts.Fetcher != nil {
		resolvers = append(resolvers, opts.Fetcher)
	}
	if dir, ok := b.envLookup(env.RevisionCache); ok && dir != "" {
		resolvers = append(resolvers, &CachedRevision{Dir: dir})
	}
	for _, r := range resolvers {
		p, err := r.Resolve(ctx)
		if err == nil {
			return p, nil
		}
		errs = append(errs, err)
	}

	return "", &common.LaunchError{
		Reason: common.LaunchReasonExecutableNotFound,
		Err:    errors.Join(errs...),
	}
}

// ExecutablePath returns the path where the browser executable was found
// on this system, or an empty string.
func (b *BrowserType) ExecutablePath() string {
	b.execMu.Lock()
	defer b.execMu.Unlock()

	if b.execPath == "" {
		b.execPath = findExecPath()
	}
	return b.execPath
}
