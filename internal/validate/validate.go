// Package validate holds the CLI's pre-flight checks: scan-root and
// output-directory validation, run before the pipeline touches anything.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
)

// Path checks that path exists and is a directory, returning its
// canonicalized (absolute, cleaned) form.
func Path(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("validate: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("validate: resolve %q: %w", path, err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("validate: %q: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("validate: %q is not a directory", abs)
	}
	return abs, nil
}

// OutputDir ensures the directory that will hold output, which is the
// directory component of outputPath, exists and is writable, creating it
// (and any missing parents) when absent.
func OutputDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("validate: create output directory %q: %w", dir, err)
	}
	probe := filepath.Join(dir, ".storagescan-write-check")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("validate: output directory %q is not writable: %w", dir, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
