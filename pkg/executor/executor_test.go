package executor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type captureSink struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureSink) WriteLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *captureSink) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestNew_RequiresDir(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for blank pipeline dir")
	}
	if _, err := New("/opt/protein-sol"); err != nil {
		t.Fatalf("New() error: %v", err)
	}
}

func TestCheck_MissingCheckout(t *testing.T) {
	e, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := e.Check(); err == nil {
		t.Fatalf("expected error for empty checkout dir")
	}
}

func TestCheck_PresentCheckout(t *testing.T) {
	dir := t.TempDir()
	wrapper := filepath.Join(dir, "multiple_prediction_wrapper_export.sh")
	if err := os.WriteFile(wrapper, []byte("#!/bin/bash\n"), 0755); err != nil {
		t.Fatalf("write wrapper: %v", err)
	}

	e, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := e.Check(); err != nil {
		t.Fatalf("Check() error: %v", err)
	}
}

func TestLineStream_SplitsOnNewlines(t *testing.T) {
	sink := &captureSink{}
	ls := newLineStream(sink)

	_, _ = ls.Write([]byte("first line\nsecond "))
	_, _ = ls.Write([]byte("line\nthird"))
	ls.Flush()

	got := sink.all()
	want := []string{"first line\n", "second line\n", "third"}
	if len(got) != len(want) {
		t.Fatalf("line count mismatch: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d mismatch: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestLineStream_FlushOnEmptyBufferEmitsNothing(t *testing.T) {
	sink := &captureSink{}
	ls := newLineStream(sink)

	_, _ = ls.Write([]byte("complete\n"))
	ls.Flush()
	ls.Flush()

	if got := sink.all(); len(got) != 1 {
		t.Fatalf("expected exactly one line, got %v", got)
	}
}

func TestCollectArtifacts_RenamesByPrefix(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "input.fasta-protein_sol.csv"), []byte("ID,sequence\n"), 0644); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	prefix := filepath.Join(outDir, "myrun")
	got, err := collectArtifacts(workDir, prefix, map[string]artifactSpec{
		"csv":        {src: "input.fasta-protein_sol.csv", suffix: "_solubility_results.csv"},
		"prediction": {src: "input.fasta-protein_sol_prediction.txt", suffix: "_detailed_prediction.txt"},
	})
	if err != nil {
		t.Fatalf("collectArtifacts() error: %v", err)
	}

	wantCSV := prefix + "_solubility_results.csv"
	if got["csv"] != wantCSV {
		t.Fatalf("csv artifact path: got %q want %q", got["csv"], wantCSV)
	}
	if _, err := os.Stat(wantCSV); err != nil {
		t.Fatalf("csv artifact not copied: %v", err)
	}

	// The prediction file was never produced; it must be skipped, not fail.
	if _, ok := got["prediction"]; ok {
		t.Fatalf("missing optional artifact must be skipped: %v", got)
	}
}

func TestCopyFile_CreatesParentDirs(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.txt")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "deep", "nested", "dst.txt")
	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile() error: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(b) != "payload" {
		t.Fatalf("content mismatch: %q", string(b))
	}
}
