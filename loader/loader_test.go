package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/parser"
)

func TestLoadFileRegistersClass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.script")
	src := "classe principal\nfunc ini\n  tela.msg(\"ola\")\nfim\nfim\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	classes := class.New()
	l := New(parser.New(), classes, nil)
	if errs := l.LoadFile(path); len(errs) != 0 {
		t.Fatalf("LoadFile errors: %v", errs)
	}
	if !classes.Has("principal") {
		t.Fatal("class 'principal' not registered")
	}
}

func TestLoadFileReportsPerFileError(t *testing.T) {
	classes := class.New()
	l := New(parser.New(), classes, nil)
	errs := l.LoadFile(filepath.Join(t.TempDir(), "missing.script"))
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}
