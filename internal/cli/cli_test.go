package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/docfoundry/docgraph/pkg/cache"
	"github.com/docfoundry/docgraph/pkg/graph"
	"github.com/docfoundry/docgraph/pkg/graphio"
)

func writeGraphFile(t *testing.T, key []byte) string {
	t.Helper()
	g := graph.New(graph.Options{})
	g.AddNode("guide", nil)
	g.AddNode("spec", nil)
	if err := g.AddEdge(graph.Edge{From: "guide", To: "spec", Type: graph.DependsOn, Strength: 1.0}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := graphio.ExportJSON(g, path, key); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEngine(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path := writeGraphFile(t, nil)

	e, err := loadEngine(context.Background(), &rootOptions{}, path, "", true)
	if err != nil {
		t.Fatalf("loadEngine: %v", err)
	}
	defer e.Close()

	if e.DocumentCount() != 2 || e.RelationshipCount() != 1 {
		t.Errorf("counts unexpected: %d/%d", e.DocumentCount(), e.RelationshipCount())
	}
}

func TestLoadEngineVerifiesSignature(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	path := writeGraphFile(t, []byte("right-key"))

	opts := &rootOptions{key: "wrong-key"}
	if _, err := loadEngine(context.Background(), opts, path, "", true); err == nil {
		t.Error("wrong key should fail to load")
	}

	opts.key = "right-key"
	e, err := loadEngine(context.Background(), opts, path, "", true)
	if err != nil {
		t.Fatalf("right key should load: %v", err)
	}
	defer e.Close()
}

func TestLoadEngineMissingFile(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	_, err := loadEngine(context.Background(), &rootOptions{}, "/nonexistent/graph.json", "", true)
	if err == nil {
		t.Error("missing file should fail")
	}
}

func TestNewCacheBackends(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	c, err := newCache(false)
	if err != nil {
		t.Fatalf("newCache: %v", err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("default backend should be the file cache, got %T", c)
	}
	if _, err := os.Stat(filepath.Join(xdg, "docgraph")); err != nil {
		t.Errorf("cache directory should exist: %v", err)
	}

	c, err = newCache(true)
	if err != nil {
		t.Fatalf("newCache: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("--no-cache should select the null cache, got %T", c)
	}
}

func TestCacheDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-test")
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg-test", "docgraph") {
		t.Errorf("cache dir unexpected: %s", dir)
	}
}

func TestLoadLimits(t *testing.T) {
	limits, err := loadLimits(&rootOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if limits.MaxImpactDepth != 10 {
		t.Errorf("defaults expected without --config: %d", limits.MaxImpactDepth)
	}

	path := filepath.Join(t.TempDir(), "limits.toml")
	if err := os.WriteFile(path, []byte("[limits]\nmax_impact_depth = 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	limits, err = loadLimits(&rootOptions{config: path})
	if err != nil {
		t.Fatal(err)
	}
	if limits.MaxImpactDepth != 4 {
		t.Errorf("config file should override defaults: %d", limits.MaxImpactDepth)
	}
}
