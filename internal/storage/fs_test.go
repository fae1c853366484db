package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/scribe/internal/checksum"
)

func tempInbox(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempInbox(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", ".processed/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read(".processed/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList_ImportableOnly(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.ipynb", []byte("{}"))
	_ = s.Write("c.TXT", []byte("c"))
	_ = s.Write("image.png", []byte("not importable"))
	_ = s.Write(".processed/old.md", []byte("already imported"))
	_ = s.Write(".draft.md", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, filepath.ToSlash(it.Path))
	}
	sort.Strings(paths)
	if diff := cmp.Diff([]string{"a.md", "c.TXT", "sub/b.ipynb"}, paths); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	for _, it := range items {
		if it.Path == "a.md" && it.Checksum != checksum.Sum([]byte("a")) {
			t.Errorf("checksum = %s", it.Checksum)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempInbox(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempInbox(t)
	_ = s.Write("atomic.md", []byte("original"))
	if err := s.Write("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".scribe-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
	f, _ := os.CreateTemp("", "scribe-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestHiddenAndImportable(t *testing.T) {
	if !Hidden(".processed/a.md") || !Hidden("x/.git/y") || Hidden("notes/a.md") {
		t.Error("Hidden misclassified a path")
	}
	if !Importable("A.IPYNB") || Importable("a.pdf") {
		t.Error("Importable misclassified a name")
	}
}
