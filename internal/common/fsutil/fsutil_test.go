package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}

	if got, err := ExpandHome("/tmp"); err != nil || got != "/tmp" {
		t.Fatalf("absolute path: got %q err=%v", got, err)
	}
	if got, err := ExpandHome(""); err != nil || got != "" {
		t.Fatalf("empty path: got %q err=%v", got, err)
	}
	if got, err := ExpandHome("~"); err != nil || got != home {
		t.Fatalf("bare tilde: got %q err=%v, want %q", got, err, home)
	}
	got, err := ExpandHome("~/models/llm")
	if err != nil {
		t.Fatalf("expand ~/models/llm: %v", err)
	}
	if want := filepath.Join(home, "models", "llm"); got != want {
		t.Fatalf("expanded path = %q, want %q", got, want)
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "model.gguf")
	if PathExists(p) {
		t.Fatalf("%q should not exist yet", p)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(p) {
		t.Fatalf("%q should exist", p)
	}
	if !PathExists(dir) {
		t.Fatalf("directory %q should exist", dir)
	}
}
