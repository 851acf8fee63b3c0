package validation

import (
	"fmt"
	"path/filepath"
)

// ValidateAbsolutePath validates that a configured path is usable:
// - Non-empty
// - Absolute
// - Clean (no "..", no doubled separators, no trailing slash)
// The name is included in error messages so the caller can point at the
// offending config key.
func ValidateAbsolutePath(name, path string) error {
	if path == "" {
		return fmt.Errorf("%s must not be empty", name)
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be an absolute path, got %q", name, path)
	}

	if filepath.Clean(path) != path {
		return fmt.Errorf("%s must be a clean path, got %q", name, path)
	}

	return nil
}
