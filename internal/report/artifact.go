package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// TempArtifact is a scratch file that is removed on Release, whether or not
// the work using it succeeded.
type TempArtifact struct {
	path string
}

// NewTempArtifact creates an empty temporary file in dir (os.TempDir when
// empty). pattern follows os.CreateTemp.
func NewTempArtifact(dir, pattern string) (*TempArtifact, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("creating temp artifact: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("closing temp artifact: %w", err)
	}
	return &TempArtifact{path: path}, nil
}

// Path of the scratch file.
func (a *TempArtifact) Path() string { return a.path }

// Release deletes the scratch file. Releasing twice, or after the file was
// moved away, is not an error.
func (a *TempArtifact) Release() error {
	if a == nil || a.path == "" {
		return nil
	}
	err := os.Remove(a.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing temp artifact: %w", err)
	}
	return nil
}

// WriteTo saves the document as dir/Filename and returns the final path.
// The body is staged in a temp file in the same directory and renamed into
// place, so readers never observe a partial report.
func (d *Document) WriteTo(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if d.Filename == "" || filepath.Base(d.Filename) != d.Filename || d.Filename == ".." {
		return "", fmt.Errorf("invalid report filename %q", d.Filename)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	tmp, err := NewTempArtifact(dir, ".votereport-*")
	if err != nil {
		return "", err
	}
	defer tmp.Release()

	if err := os.WriteFile(tmp.Path(), d.Body, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	// CreateTemp makes the file 0600.
	if err := os.Chmod(tmp.Path(), 0o644); err != nil {
		return "", fmt.Errorf("setting report permissions: %w", err)
	}
	final := filepath.Join(dir, d.Filename)
	if err := os.Rename(tmp.Path(), final); err != nil {
		return "", fmt.Errorf("moving report into place: %w", err)
	}
	return final, nil
}
