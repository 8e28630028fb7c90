// Package security keeps report and export files inside the directories the
// operator ran the tools from.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedDirs is returned for a path that resolves outside every
// allowed directory.
var ErrOutsideAllowedDirs = errors.New("path is outside the allowed directories")

// canonical resolves symlinks in the deepest existing ancestor of path, so a
// file that does not exist yet is still judged by where it would land.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	existing, rest := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

// Within reports whether path resolves inside dir. Symlinks in either are
// followed.
func Within(path, dir string) (bool, error) {
	p, err := canonical(path)
	if err != nil {
		return false, err
	}
	d, err := canonical(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil {
		return false, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return false, nil
	}
	return true, nil
}

// ValidatePathWithinAllowedDirs returns nil when path lands inside any of
// dirs.
func ValidatePathWithinAllowedDirs(path string, dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("no allowed directories specified")
	}
	for _, dir := range dirs {
		ok, err := Within(path, dir)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutsideAllowedDirs, path)
}

// ValidateOutputPath allows paths under the working directory or the
// system temp directory.
func ValidateOutputPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return ValidatePathWithinAllowedDirs(path, []string{cwd, os.TempDir()})
}
