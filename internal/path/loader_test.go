package path

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoader_LoadsYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.yaml", `
id: go-basics
name: Go Basics
topics:
  - name: Syntax
    subtopics:
      - Variables
      - name: Loops
        description: for and range
`)
	writeFile(t, dir, "rust.json", `{
		"id": "rust-basics",
		"name": "Rust Basics",
		"topics": [{"name": "Ownership", "lessons": ["Borrowing"]}]
	}`)

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	if got := len(l.All()); got != 2 {
		t.Fatalf("loaded paths = %d, want 2", got)
	}

	p, ok := l.Get("go-basics")
	if !ok {
		t.Fatal("Get(go-basics) not found")
	}
	if p.TopicCount() != 1 {
		t.Fatalf("TopicCount() = %d, want 1", p.TopicCount())
	}
	lessons := p.Topics[0].Lessons
	if len(lessons) != 2 {
		t.Fatalf("lessons = %d, want 2", len(lessons))
	}
	if lessons[0].Title != "Variables" || lessons[1].Description != "for and range" {
		t.Errorf("lessons = %+v", lessons)
	}

	if _, ok := l.Get("rust-basics"); !ok {
		t.Error("Get(rust-basics) not found")
	}
}

func TestLoader_SkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"id": "x", "topics": `)
	writeFile(t, dir, "notes.txt", "not a path")
	writeFile(t, dir, "ok.yaml", `
id: ok-path
name: OK
topics:
  - name: One
    subtopics: [A]
`)

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if got := len(l.All()); got != 1 {
		t.Errorf("loaded paths = %d, want 1 (invalid files skipped)", got)
	}
}

func TestLoader_LegacyNameKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "legacy.yaml", `
name: Old School Path
topics:
  - name: One
    subtopics: [A]
`)

	l, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if _, ok := l.Get("Old School Path"); !ok {
		t.Error("path without id should key by name")
	}
}
