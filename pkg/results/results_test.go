package results

import (
	"strings"
	"testing"
)

const sampleCSV = `ID,sequence,percent-sol,scaled-sol,population-sol,pI
sp1,MKTAYIAK,0.668,0.712,0.45,6.10
sp2,GGGAAATT,0.312,0.298,0.45,8.75
`

func TestParse_ValidCSV(t *testing.T) {
	preds, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(preds))
	}
	if preds[0].ID != "sp1" || preds[0].Sequence != "MKTAYIAK" {
		t.Fatalf("row 0 mismatch: %+v", preds[0])
	}
	if preds[0].PercentSol != 0.668 || preds[0].ScaledSol != 0.712 {
		t.Fatalf("row 0 solubility mismatch: %+v", preds[0])
	}
	if preds[1].PI != 8.75 {
		t.Fatalf("row 1 pI mismatch: %+v", preds[1])
	}
}

func TestParse_RejectsWrongHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("name,seq,sol\nsp1,MKT,0.5\n"))
	if err == nil {
		t.Fatalf("expected header validation error")
	}
}

func TestParse_RejectsMalformedNumbers(t *testing.T) {
	bad := "ID,sequence,percent-sol,scaled-sol,population-sol,pI\nsp1,MKT,not-a-number,0.7,0.45,6.1\n"
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected numeric parse error")
	}
}

func TestParse_ToleratesExtraColumns(t *testing.T) {
	csvWithExtra := "ID,sequence,percent-sol,scaled-sol,population-sol,pI,extra\nsp1,MKT,0.6,0.7,0.45,6.1,x\n"
	preds, err := Parse(strings.NewReader(csvWithExtra))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(preds) != 1 || preds[0].ID != "sp1" {
		t.Fatalf("extra trailing column must be tolerated: %+v", preds)
	}
}

func TestParseFile_MissingFile(t *testing.T) {
	if _, err := ParseFile("/nonexistent/results.csv"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
