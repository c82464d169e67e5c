package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "cablesync/pkg/errors"
)

const fileScheme = "file://"

// FileResolver reads locators as paths relative to a root directory. Locators may
// carry a file:// prefix and are confined to the root.
type FileResolver struct {
	root     string
	maxBytes int64
}

func NewFileResolver(root string, maxBytes int64) *FileResolver {
	return &FileResolver{root: root, maxBytes: maxBytes}
}

func (r *FileResolver) Resolve(ctx context.Context, locator string) ([]byte, error) {
	path, err := r.path(locator)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, pkgerrors.ErrInput.WithCause(err).WithDetail("message", fmt.Sprintf("source %q does not exist", locator))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return nil, pkgerrors.ErrInput.WithDetail("message", fmt.Sprintf("source %q is a directory", locator))
	}
	if r.maxBytes > 0 && info.Size() > r.maxBytes {
		return nil, pkgerrors.ErrInput.WithDetail("message", fmt.Sprintf("source exceeds %d bytes", r.maxBytes))
	}

	reader := io.Reader(f)
	if r.maxBytes > 0 {
		reader = io.LimitReader(f, r.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return nil, pkgerrors.ErrInput.WithDetail("message", fmt.Sprintf("source exceeds %d bytes", r.maxBytes))
	}
	return data, nil
}

func (r *FileResolver) path(locator string) (string, error) {
	rel := strings.TrimPrefix(strings.TrimSpace(locator), fileScheme)
	if rel == "" || strings.Contains(rel, "://") {
		return "", pkgerrors.ErrInput.WithDetail("message", fmt.Sprintf("unsupported storage locator %q", locator))
	}
	if r.root == "" {
		return "", pkgerrors.ErrInput.WithDetail("message", "no source root is configured")
	}

	root, err := filepath.Abs(r.root)
	if err != nil {
		return "", fmt.Errorf("invalid source root: %w", err)
	}

	// Cleaning against "/" drops any leading "..", so the result stays under root.
	return filepath.Join(root, filepath.Clean("/"+rel)), nil
}
