// Package fasta provides minimal FASTA reading, writing, and input-file
// discovery for the prediction pipeline.
package fasta

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Sequence is one record from a FASTA file.
type Sequence struct {
	ID       string
	Sequence string
}

// extensions considered FASTA input during discovery.
var extensions = []string{"fasta", "fa", "fas", "faa", "seq"}

// ReadFile parses all sequences from a FASTA file. Header lines start with
// '>'; sequence data may span multiple lines.
func ReadFile(path string) ([]Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var (
		out     []Sequence
		current *Sequence
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			if current != nil {
				out = append(out, *current)
			}
			current = &Sequence{ID: strings.TrimSpace(line[1:])}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("fasta: sequence data before header in %s", path)
		}
		current.Sequence += line
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fasta: read %s: %w", path, err)
	}
	if current != nil {
		out = append(out, *current)
	}
	return out, nil
}

// WriteFile writes a single sequence as a FASTA file.
func WriteFile(path, id, sequence string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("fasta: sequence id is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	content := fmt.Sprintf(">%s\n%s\n", id, strings.TrimSpace(sequence))
	return os.WriteFile(path, []byte(content), 0644)
}

// FindFiles resolves an input path to FASTA files. A file path is returned
// as-is; a directory is searched recursively for the common FASTA
// extensions. Results are sorted for deterministic batch ordering.
func FindFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	seen := make(map[string]struct{})
	root := os.DirFS(path)
	for _, ext := range extensions {
		matches, err := doublestar.Glob(root, "**/*."+ext)
		if err != nil {
			return nil, fmt.Errorf("fasta: glob *.%s under %s: %w", ext, path, err)
		}
		for _, m := range matches {
			seen[filepath.Join(path, m)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
