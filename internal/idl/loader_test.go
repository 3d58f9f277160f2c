package idl

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDir_SkipsMalformedAndLoadsValid(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "good.json", `{"address":"`+testProgram+`","events":[{"name":"Transfer","fields":[{"name":"amount","type":"u64"}]}]}`)
	writeFile(t, dir, "bad.json", `not json at all`)
	writeFile(t, dir, "mismatch.json", `{"address":"wrongAddress","events":[]}`)
	writeFile(t, dir, "ignored.txt", `irrelevant`)

	reg := NewRegistry()
	if err := LoadDir(reg, dir, nil); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}

	if reg.ProgramCount() != 1 {
		t.Fatalf("expected exactly 1 registered program, got %d", reg.ProgramCount())
	}
	if _, ok := reg.Lookup(testProgram, Discriminator("Transfer")); !ok {
		t.Fatal("expected Transfer to be registered from good.json")
	}
}

func TestLoadDir_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry()
	if err := LoadDir(reg, dir, nil); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if reg.ProgramCount() != 0 {
		t.Fatalf("expected 0 programs, got %d", reg.ProgramCount())
	}
}
