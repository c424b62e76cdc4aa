package appdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathCreatesDirUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := Path("journal.db")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	want := filepath.Join(home, Name, "journal.db")
	if p != want {
		t.Fatalf("expected %s, got %s", want, p)
	}
	if fi, err := os.Stat(filepath.Dir(p)); err != nil || !fi.IsDir() {
		t.Fatalf("state dir not created: %v", err)
	}
}
