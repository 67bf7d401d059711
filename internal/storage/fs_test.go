package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/myfview/internal/apperr"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func writeFile(t *testing.T, s *FS, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(s.root, file), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", file, err)
	}
}

func TestLookupJSON(t *testing.T) {
	s := tempStore(t)
	writeFile(t, s, "ada.json", `{"name": "Ada", "langs": ["en", "fr"]}`)

	rec, err := s.Lookup("ada")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Name() != "Ada" {
		t.Errorf("name = %q", rec.Name())
	}
}

func TestLookupFallsBackThroughExtensions(t *testing.T) {
	s := tempStore(t)
	writeFile(t, s, "bob.toml", "name = \"Bob\"\n")

	rec, err := s.Lookup("bob")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Name() != "Bob" {
		t.Errorf("name = %q", rec.Name())
	}
}

func TestLookupPrefersJSON(t *testing.T) {
	s := tempStore(t)
	writeFile(t, s, "eve.yaml", "name: Yaml Eve\n")
	writeFile(t, s, "eve.json", `{"name": "Json Eve"}`)

	rec, err := s.Lookup("eve")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Name() != "Json Eve" {
		t.Errorf("name = %q, want Json Eve", rec.Name())
	}
}

func TestLookupNotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Lookup("nobody")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var recErr *apperr.RecordError
	if errors.As(err, &recErr) {
		t.Error("not-found must not be a RecordError")
	}
}

func TestLookupCorruptRecord(t *testing.T) {
	s := tempStore(t)
	writeFile(t, s, "broken.json", `{"name": `)

	_, err := s.Lookup("broken")
	var recErr *apperr.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("err = %v, want RecordError", err)
	}
	if recErr.Name != "broken" {
		t.Errorf("record name = %q", recErr.Name)
	}
	if errors.Is(err, apperr.ErrNotFound) {
		t.Error("corrupt record must not look like not-found")
	}
}

func TestLookupAlwaysRereads(t *testing.T) {
	s := tempStore(t)
	writeFile(t, s, "ada.json", `{"name": "Ada"}`)
	if _, err := s.Lookup("ada"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, s, "ada.json", `{"name": "Ada Lovelace"}`)
	rec, err := s.Lookup("ada")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name() != "Ada Lovelace" {
		t.Errorf("stale record returned: %q", rec.Name())
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)

	cases := []string{
		"../../etc/passwd",
		"../outside",
		"/etc/shadow",
		"a/b",
		`a\b`,
		"..",
		".hidden",
		"",
		"nul\x00byte",
	}
	for _, p := range cases {
		if _, err := s.Lookup(p); !errors.Is(err, apperr.ErrInvalidIdentifier) {
			t.Errorf("Lookup(%q) err = %v, want ErrInvalidIdentifier", p, err)
		}
	}
}

func TestList(t *testing.T) {
	s := tempStore(t)
	writeFile(t, s, "a.json", `{}`)
	writeFile(t, s, "b.yaml", "name: b\n")
	writeFile(t, s, "b.toml", "name = 'b'\n")
	writeFile(t, s, "readme.txt", "not a record")
	writeFile(t, s, ".hidden.json", `{}`)
	if err := os.Mkdir(filepath.Join(s.root, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	for _, it := range items {
		if it.Name == "b" && it.Ext != ".yaml" {
			t.Errorf("b ext = %q, want .yaml", it.Ext)
		}
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Name)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/myfview-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "myfview-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
