// Package analysis computes basic amino acid composition and
// physicochemical statistics for protein sequences, without invoking the
// external pipeline.
package analysis

import (
	"regexp"
	"strings"
)

// Residue class membership used for the percentage breakdowns.
const (
	aminoAcids  = "ACDEFGHIKLMNPQRSTVWY"
	hydrophobic = "AILMFPWV"
	charged     = "DEKR"
	polar       = "NQSTY"
)

// approxResidueMass is the average residue mass used for the molecular
// weight estimate, matching the upstream pipeline's approximation.
const approxResidueMass = 110

var whitespace = regexp.MustCompile(`\s+`)

// Stats summarizes one sequence.
type Stats struct {
	Length             int            `json:"length"`
	MolecularWeight    int            `json:"molecular_weight"`
	HydrophobicCount   int            `json:"hydrophobic_residues"`
	HydrophobicPercent float64        `json:"hydrophobic_percent"`
	ChargedCount       int            `json:"charged_residues"`
	ChargedPercent     float64        `json:"charged_percent"`
	PolarCount         int            `json:"polar_residues"`
	PolarPercent       float64        `json:"polar_percent"`
	Composition        map[string]int `json:"amino_acid_composition"`
}

// BasicStats computes composition statistics for a raw sequence string.
// Whitespace is stripped and the sequence is upper-cased first; unknown
// characters are ignored in the composition counts.
func BasicStats(sequence string) Stats {
	seq := strings.ToUpper(whitespace.ReplaceAllString(sequence, ""))

	composition := make(map[string]int, len(aminoAcids))
	total := 0
	for _, aa := range aminoAcids {
		n := strings.Count(seq, string(aa))
		composition[string(aa)] = n
		total += n
	}

	countOf := func(classes string) int {
		n := 0
		for _, aa := range classes {
			n += composition[string(aa)]
		}
		return n
	}
	percent := func(n int) float64 {
		if total == 0 {
			return 0
		}
		return float64(n) / float64(total) * 100
	}

	h := countOf(hydrophobic)
	c := countOf(charged)
	p := countOf(polar)

	return Stats{
		Length:             len(seq),
		MolecularWeight:    total * approxResidueMass,
		HydrophobicCount:   h,
		HydrophobicPercent: percent(h),
		ChargedCount:       c,
		ChargedPercent:     percent(c),
		PolarCount:         p,
		PolarPercent:       percent(p),
		Composition:        composition,
	}
}
