package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func newFS(t *testing.T) *FS {
	t.Helper()
	f, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestWriteRead(t *testing.T) {
	f := newFS(t)
	if err := f.Write("sub/dir/note.md", []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := f.Read("sub/dir/note.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
}

func TestSafePath_RejectsEscapes(t *testing.T) {
	f := newFS(t)
	if err := f.Write("../outside.md", []byte("x")); err == nil {
		t.Error("expected traversal write to fail")
	}
	if _, err := f.Read("/etc/passwd"); err == nil {
		t.Error("expected absolute read to fail")
	}
}

func TestListMarkdown(t *testing.T) {
	f := newFS(t)
	for _, p := range []string{"a.md", "nested/b.MD", "nested/deep/c.md"} {
		if err := f.Write(p, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.Write("ignore.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}

	files, err := f.ListMarkdown("")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("files = %v, want 3 markdown entries", files)
	}
	for _, p := range files {
		if p == "ignore.txt" {
			t.Error("non-markdown file listed")
		}
	}
}

func TestListMarkdown_MissingDir(t *testing.T) {
	f := newFS(t)
	files, err := f.ListMarkdown("absent")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
}

func TestCopy(t *testing.T) {
	f := newFS(t)
	src := filepath.Join(t.TempDir(), "asset.png")
	if err := os.WriteFile(src, []byte{0x89, 0x50}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := f.Copy(src, "assets/unassigned/asset.png"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	data, err := f.Read("assets/unassigned/asset.png")
	if err != nil || len(data) != 2 {
		t.Errorf("copied data = %v, err = %v", data, err)
	}
}
