package packer

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path through a temporary file in the same
// directory that is renamed into place. Readers of path see either the old
// content or the new content. The temporary file is removed on failure.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)

	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()         //nolint:errcheck // Already failing.
			_ = os.Remove(tmpPath) //nolint:errcheck // Already failing.
		}
	}()

	_, err = tmp.Write(data)
	if err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}

	err = tmp.Sync()
	if err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	err = os.Chmod(tmpPath, perm)
	if err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}

	return nil
}
