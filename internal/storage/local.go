package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps blobs on the local filesystem under root.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates root if needed. baseURL is the prefix the root is served under.
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the directory blobs are written to.
func (s *LocalStorage) Root() string {
	return s.root
}

// BaseURL returns the URL prefix the root is served under.
func (s *LocalStorage) BaseURL() string {
	return s.baseURL
}

func (s *LocalStorage) Put(ctx context.Context, collection string, content io.Reader) (string, error) {
	name, data, err := newObjectName(collection, content)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create collection dir: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	return name, nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// resolve maps a relative blob path onto the root, rejecting escapes.
func (s *LocalStorage) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}
