// Package api contains helpers shared by the versioned configuration APIs.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/macropower/rulepack/pkg/yaml"
)

// ErrNotRegular is returned by [ReadFile] for directories, devices and other
// non-regular files.
var ErrNotRegular = errors.New("not a regular file")

// ReadFile reads the regular file at path.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: Path from user input.
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// MarshalYAML encodes obj as a single YAML document.
func MarshalYAML(obj any) ([]byte, error) {
	var b bytes.Buffer

	enc := yaml.NewEncoder(&b)

	err := enc.Encode(obj)
	if err == nil {
		err = enc.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	return b.Bytes(), nil
}

// FindConfigFile returns the first regular file named one of fileNames in
// the directory of targetPath or any of its parents. It returns an empty
// string if there is none.
func FindConfigFile(targetPath string, fileNames []string) (string, error) {
	dir, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, name := range fileNames {
			candidate := filepath.Join(dir, name)
			if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}
