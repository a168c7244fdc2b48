package writer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starmountain1997/vaops/pkg/script"
	"github.com/starmountain1997/vaops/pkg/vllmconfig"
)

func sample() script.RenderedScript {
	return script.RenderedScript{
		Variant:  vllmconfig.SingleNode,
		Filename: "start_server.sh",
		Content:  "#!/bin/bash\necho serving\n",
	}
}

func TestWriteCreatesExecutableScript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")

	path, err := Write(sample(), dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if path != filepath.Join(dir, "start_server.sh") {
		t.Errorf("path = %q", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(content) != sample().Content {
		t.Errorf("content = %q, want %q", content, sample().Content)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("script is not executable: mode %v", info.Mode())
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	dir := t.TempDir()

	if _, err := Write(sample(), dir); err != nil {
		t.Fatalf("first Write: %v", err)
	}

	s := sample()
	s.Content = "#!/bin/bash\necho updated\n"
	path, err := Write(s, dir)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(content) != s.Content {
		t.Errorf("content = %q, want the rewritten script", content)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Errorf("rewritten script lost its executable bit: mode %v", info.Mode())
	}
}

func TestWriteReportsIOError(t *testing.T) {
	// A file where the target directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocked")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := Write(sample(), blocker)
	if err == nil {
		t.Fatal("expected an error writing into a file path")
	}
	if !errors.Is(err, ErrIO) {
		t.Errorf("error = %v, want ErrIO", err)
	}
}
