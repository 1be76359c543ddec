package rule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hjonck/leadscout-sub002/internal/domain"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dictionary.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadCSV_ParsesAllColumns(t *testing.T) {
	path := writeCSV(t, "name,ethnicity,priority,confidence_base\n"+
		"Mthembu,african,5,0.85\n"+
		"Pillay,indian,5,0.85\n")

	entries, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].NormalizedName != "mthembu" || entries[0].Ethnicity != domain.EthnicityAfrican {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].Priority != 5 || entries[0].ConfidenceBase != 0.85 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
}

func TestLoadCSV_DefaultsMissingOptionalColumns(t *testing.T) {
	path := writeCSV(t, "name,ethnicity\nBotha,white\n")

	entries, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Priority != 0 {
		t.Errorf("Priority = %d, want 0 default", entries[0].Priority)
	}
	if entries[0].ConfidenceBase != 0.95 {
		t.Errorf("ConfidenceBase = %v, want 0.95 default", entries[0].ConfidenceBase)
	}
}

func TestLoadCSV_InvalidPriority_Errors(t *testing.T) {
	path := writeCSV(t, "name,ethnicity,priority\nBotha,white,not-a-number\n")
	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected an error for a non-numeric priority column")
	}
}

func TestLoadCSV_MissingFile_Errors(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
