package analysis

import (
	"math"
	"testing"
)

func TestBasicStats_Composition(t *testing.T) {
	// 4 A, 2 K, 2 D, 2 S.
	stats := BasicStats("AAAAKKDDSS")

	if stats.Length != 10 {
		t.Fatalf("length: got %d", stats.Length)
	}
	if stats.Composition["A"] != 4 {
		t.Fatalf("A count: got %d", stats.Composition["A"])
	}
	if stats.Composition["K"] != 2 || stats.Composition["D"] != 2 || stats.Composition["S"] != 2 {
		t.Fatalf("composition mismatch: %v", stats.Composition)
	}
	if stats.Composition["W"] != 0 {
		t.Fatalf("absent residue must count zero: %d", stats.Composition["W"])
	}

	// A is hydrophobic; D, E, K, R are charged; S is polar.
	if stats.HydrophobicCount != 4 {
		t.Fatalf("hydrophobic count: got %d", stats.HydrophobicCount)
	}
	if stats.ChargedCount != 4 {
		t.Fatalf("charged count: got %d", stats.ChargedCount)
	}
	if stats.PolarCount != 2 {
		t.Fatalf("polar count: got %d", stats.PolarCount)
	}
	if math.Abs(stats.HydrophobicPercent-40.0) > 1e-9 {
		t.Fatalf("hydrophobic percent: got %f", stats.HydrophobicPercent)
	}
	if stats.MolecularWeight != 10*approxResidueMass {
		t.Fatalf("molecular weight: got %d", stats.MolecularWeight)
	}
}

func TestBasicStats_NormalizesInput(t *testing.T) {
	a := BasicStats("mkt ayi\nakq")
	b := BasicStats("MKTAYIAKQ")

	if a.Length != b.Length {
		t.Fatalf("whitespace not stripped: %d vs %d", a.Length, b.Length)
	}
	for aa, n := range b.Composition {
		if a.Composition[aa] != n {
			t.Fatalf("case normalization broken for %s: %d vs %d", aa, a.Composition[aa], n)
		}
	}
}

func TestBasicStats_UnknownResiduesIgnoredInCounts(t *testing.T) {
	stats := BasicStats("AAXX")

	// Unknown characters stay in the raw length but not in the counts.
	if stats.Length != 4 {
		t.Fatalf("length: got %d", stats.Length)
	}
	if stats.MolecularWeight != 2*approxResidueMass {
		t.Fatalf("molecular weight must count known residues only: %d", stats.MolecularWeight)
	}
}

func TestBasicStats_EmptySequence(t *testing.T) {
	stats := BasicStats("")
	if stats.Length != 0 || stats.HydrophobicPercent != 0 || stats.MolecularWeight != 0 {
		t.Fatalf("empty sequence must yield zero stats: %+v", stats)
	}
}
