package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()

	baseDir := filepath.Join(tmp, "base")
	otherDir := filepath.Join(tmp, "other")

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}
	if err := os.MkdirAll(otherDir, 0o755); err != nil {
		t.Fatalf("failed to create other dir: %v", err)
	}

	target := filepath.Join(otherDir, "file.xpl")

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}

	want := normalizePath(target)
	if got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}

func TestRelativePathInsideBaseStaysRelative(t *testing.T) {
	tmp := t.TempDir()

	baseDir := filepath.Join(tmp, "base")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		t.Fatalf("failed to create base dir: %v", err)
	}

	target := filepath.Join(baseDir, "nested", "file.xpl")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	got, err := RelativePath(target, baseDir)
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}

	want := normalizePath(filepath.Join("nested", "file.xpl"))
	if got != want {
		t.Fatalf("expected relative path %q, got %q", want, got)
	}
}

func TestStripBOM(t *testing.T) {
	got := StripBOM([]byte("\xEF\xBB\xBFlet x = 1"))
	if string(got) != "let x = 1" {
		t.Fatalf("expected BOM to be stripped, got %q", got)
	}
	if got := StripBOM([]byte("ab")); string(got) != "ab" {
		t.Fatalf("expected short input unchanged, got %q", got)
	}
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir with space", "a.xpl")
	uri := PathToURI(path)
	if uri == "" || uri[:7] != "file://" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if got := URIToPath(uri); got != path {
		t.Fatalf("expected %q, got %q", path, got)
	}
	if got := URIToPath("untitled:Untitled-1"); got != "" {
		t.Fatalf("expected non-file scheme to map to empty path, got %q", got)
	}
}
