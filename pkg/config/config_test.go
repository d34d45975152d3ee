package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	if l.MaxTraversalDepth != 10000 {
		t.Errorf("MaxTraversalDepth unexpected: %d", l.MaxTraversalDepth)
	}
	if l.MaxImportNodes != 100000 || l.MaxImportEdges != 100000 {
		t.Error("import ceilings unexpected")
	}
	if l.CacheTTL() != 15*time.Minute {
		t.Errorf("CacheTTL unexpected: %v", l.CacheTTL())
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docgraph.toml")
	content := `
[limits]
max_impact_depth = 25
critical_threshold = 3
structural_types = ["depends_on"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if l.MaxImpactDepth != 25 {
		t.Errorf("MaxImpactDepth not loaded: %d", l.MaxImpactDepth)
	}
	if l.CriticalThreshold != 3 {
		t.Errorf("CriticalThreshold not loaded: %d", l.CriticalThreshold)
	}
	if len(l.StructuralTypes) != 1 || l.StructuralTypes[0] != "depends_on" {
		t.Errorf("StructuralTypes not loaded: %v", l.StructuralTypes)
	}
	// Unspecified fields keep their defaults.
	if l.MaxTraversalDepth != 10000 {
		t.Errorf("unspecified field should keep default: %d", l.MaxTraversalDepth)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[limits\nbroken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed TOML should fail")
	}
}
