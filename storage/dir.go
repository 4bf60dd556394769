package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Dir is a browser profile directory.
// A directory the caller provided is never removed.
type Dir struct {
	Dir        string
	removeOnCl bool
}

// Make creates a new temporary directory in tmpDir, and stores the path to
// the directory in the Dir field. When dir is not empty it is used as is and
// left in place by Cleanup.
func (d *Dir) Make(tmpDir, dir string) error {
	if dir != "" {
		d.Dir = dir
		return nil
	}

	pattern := fmt.Sprintf("cdpdriver-profile-%s-*", uuid.NewString())
	name, err := os.MkdirTemp(tmpDir, pattern)
	if err != nil {
		return fmt.Errorf("making profile directory: %w", err)
	}
	d.Dir = filepath.Clean(name)
	d.removeOnCl = true

	return nil
}

// Cleanup removes the directory when it was created by Make.
// Calling it more than once is a no-op.
func (d *Dir) Cleanup() error {
	if !d.removeOnCl {
		return nil
	}
	d.removeOnCl = false

	if err := os.RemoveAll(d.Dir); err != nil {
		return fmt.Errorf("removing profile directory %q: %w", d.Dir, err)
	}

	return nil
}
