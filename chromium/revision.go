package chromium

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/liuxd6825/cdpdriver/common"
)

var _ common.ExecutableResolver = &CachedRevision{}

const (
	revisionLockFile  = ".lock"
	revisionLockRetry = 50 * time.Millisecond
)

// CachedRevision resolves the executable of a browser revision that was
// already downloaded to a cache directory laid out as
// <Dir>/<platform>-<revision>/<executable>.
type CachedRevision struct {
	Fs afero.Fs
	// Dir is the cache directory. The user cache directory is used when
	// it's empty.
	Dir string
	// Revision selects a revision. The highest installed one is used when
	// it's empty.
	Revision string
}

// Resolve returns the path of the cached executable. The cache is locked
// while it's looked up, so an installer holding the same lock is never
// observed half way.
func (r *CachedRevision) Resolve(ctx context.Context) (string, error) {
	dir, err := r.dir()
	if err != nil {
		return "", err
	}
	fs := r.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:forbidigo
		return "", fmt.Errorf("creating revision cache: %w", err)
	}
	lock := flock.New(filepath.Join(dir, revisionLockFile))
	locked, err := lock.TryRLockContext(ctx, revisionLockRetry)
	if err != nil {
		return "", fmt.Errorf("locking revision cache: %w", err)
	}
	if !locked {
		return "", errors.New("locking revision cache: lock not acquired")
	}
	defer lock.Unlock() //nolint:errcheck

	rev := r.Revision
	if rev == "" {
		if rev, err = latestRevision(fs, dir); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, platformPrefix()+"-"+rev, revisionExecutable())
	if _, err := fs.Stat(path); err != nil {
		return "", fmt.Errorf("revision %s is not installed in %s: %w", rev, dir, err)
	}

	return path, nil
}

func (r *CachedRevision) dir() (string, error) {
	if r.Dir != "" {
		return r.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("finding user cache directory: %w", err)
	}
	return filepath.Join(dir, "cdpdriver"), nil
}

// latestRevision returns the highest revision installed for this platform.
func latestRevision(fs afero.Fs, dir string) (string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", fmt.Errorf("reading revision cache: %w", err)
	}
	prefix := platformPrefix() + "-"

	var revs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		revs = append(revs, name[len(prefix):])
	}
	if len(revs) == 0 {
		return "", fmt.Errorf("no revision installed in %s", dir)
	}
	// revisions are numbers, compare them as such
	sort.Slice(revs, func(i, j int) bool {
		if len(revs[i]) != len(revs[j]) {
			return len(revs[i]) < len(revs[j])
		}
		return revs[i] < revs[j]
	})

	return revs[len(revs)-1], nil
}

func platformPrefix() string {
	switch runtime.GOOS {
	case "darwin":
		return "mac"
	case "windows":
		return "win"
	}
	return runtime.GOOS
}

func revisionExecutable() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join("chrome-mac", "Chromium.app", "Contents", "MacOS", "Chromium")
	case "windows":
		return filepath.Join("chrome-win", "chrome.exe")
	}
	return filepath.Join("chrome-linux", "chrome")
}
