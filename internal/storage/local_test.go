package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"usermanager/internal/testutil"
)

var blobName = regexp.MustCompile(`^profile_images/[0-9a-f-]{36}\.png$`)

func TestLocalStorage_PutAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "/storage/")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	ctx := context.Background()
	data := testutil.PNG(t)

	path, err := s.Put(ctx, "profile_images", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !blobName.MatchString(path) {
		t.Fatalf("unexpected blob path %q", path)
	}

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatalf("stored bytes differ")
	}

	if got, want := s.URL(path), "/storage/"+path; got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}

	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(path))); !os.IsNotExist(err) {
		t.Fatalf("blob still present after delete: %v", err)
	}
	// Missing blobs are a no-op.
	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLocalStorage_UniqueNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/storage")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	data := testutil.GIF(t)

	a, err := s.Put(context.Background(), "profile_images", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	b, err := s.Put(context.Background(), "profile_images", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct names, both %q", a)
	}
	if filepath.Ext(a) != ".gif" {
		t.Fatalf("expected .gif extension, got %q", a)
	}
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/storage")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	for _, p := range []string{"", "../secret", "/etc/passwd", "a/../../b"} {
		if err := s.Delete(context.Background(), p); err == nil {
			t.Errorf("Delete(%q) should fail", p)
		}
	}
}
