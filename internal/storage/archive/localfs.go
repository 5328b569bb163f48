package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newthinker/strata/internal/core"
)

// LocalFS implements Storage under a base directory
type LocalFS struct {
	basePath string
}

// NewLocalFS creates the base directory if needed
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating base path: %w", err)
	}
	return &LocalFS{basePath: filepath.Clean(basePath)}, nil
}

// fullPath resolves path under the base directory, rejecting escapes.
func (l *LocalFS) fullPath(path string) (string, error) {
	full := filepath.Join(l.basePath, filepath.FromSlash(path))
	rel, err := filepath.Rel(l.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", core.Errorf(core.ErrInvalidConfiguration, "path %q escapes archive", path)
	}
	return full, nil
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	// write-then-rename keeps readers from seeing partial documents
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.Errorf(core.ErrNotFound, "archive %s", path)
	}
	return data, err
}

// List returns slash-separated paths under prefix in lexical order.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	root, err := l.fullPath(prefix)
	if err != nil {
		return nil, err
	}

	paths := []string{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, _ := filepath.Rel(l.basePath, path)
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	sort.Strings(paths)
	return paths, err
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	full, err := l.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
