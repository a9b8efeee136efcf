package fsutil

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteTextFile writes content verbatim to path, creating missing parent
// directories. An existing file is truncated.
func WriteTextFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "could not write %s", path)
	}
	return nil
}
