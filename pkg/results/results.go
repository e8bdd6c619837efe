// Package results parses the CSV output of the solubility prediction
// pipeline into typed records.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Prediction is one row of the pipeline's results CSV.
type Prediction struct {
	ID            string  `json:"id"`
	Sequence      string  `json:"sequence"`
	PercentSol    float64 `json:"percent_sol"`
	ScaledSol     float64 `json:"scaled_sol"`
	PopulationSol float64 `json:"population_sol"`
	PI            float64 `json:"pi"`
}

// expected header of the results CSV, as emitted by the pipeline.
var header = []string{"ID", "sequence", "percent-sol", "scaled-sol", "population-sol", "pI"}

// ParseFile reads a results CSV from disk.
func ParseFile(path string) ([]Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads results CSV rows. The header row is validated against the
// pipeline's known column layout.
func Parse(r io.Reader) ([]Prediction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("results: read header: %w", err)
	}
	if len(head) < len(header) {
		return nil, fmt.Errorf("results: unexpected header %v", head)
	}
	for i, want := range header {
		if !strings.EqualFold(strings.TrimSpace(head[i]), want) {
			return nil, fmt.Errorf("results: unexpected column %q (want %q)", head[i], want)
		}
	}

	var out []Prediction
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("results: read row: %w", err)
		}
		if len(row) < len(header) {
			continue
		}
		p := Prediction{
			ID:       strings.TrimSpace(row[0]),
			Sequence: strings.TrimSpace(row[1]),
		}
		if p.PercentSol, err = parseFloat(row[2]); err != nil {
			return nil, fmt.Errorf("results: row %q: %w", p.ID, err)
		}
		if p.ScaledSol, err = parseFloat(row[3]); err != nil {
			return nil, fmt.Errorf("results: row %q: %w", p.ID, err)
		}
		if p.PopulationSol, err = parseFloat(row[4]); err != nil {
			return nil, fmt.Errorf("results: row %q: %w", p.ID, err)
		}
		if p.PI, err = parseFloat(row[5]); err != nil {
			return nil, fmt.Errorf("results: row %q: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
