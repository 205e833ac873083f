package evidence

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FS writes evidence under a root directory, one file per key.
type FS struct {
	root string
}

// NewFS returns a store rooted at dir. The directory is created on first
// write.
func NewFS(dir string) *FS {
	return &FS{root: dir}
}

// Put writes body to a temporary file and renames it into place, so a
// partially written upload is never visible under key.
func (f *FS) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create evidence dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write evidence: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close evidence: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("store evidence: %w", err)
	}
	return nil
}

// Path returns the file a key is stored at.
func (f *FS) Path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(key)), nil
}
