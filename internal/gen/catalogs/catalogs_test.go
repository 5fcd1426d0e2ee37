package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_LoadsEmbeddedTables(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Flora.Version != "flora-v1" || c.Fauna.Version != "fauna-v1" || c.Resources.Version != "resources-v1" {
		t.Fatalf("unexpected versions: %s %s %s", c.Flora.Version, c.Fauna.Version, c.Resources.Version)
	}
	if len(c.Digest) != 64 {
		t.Fatalf("digest length: %d", len(c.Digest))
	}
	if _, ok := c.Resources.ByID["MANA_CRYSTAL"]; !ok {
		t.Fatalf("missing MANA_CRYSTAL kind")
	}
	if _, ok := c.Flora.Biomes["OCEAN"]; ok {
		t.Fatalf("flora should not grow in the ocean")
	}
}

func TestLoadDir_RejectsUnknownSpecies(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fauna.json", "resources.json"} {
		b, err := embedded.ReadFile("data/" + name)
		if err != nil {
			t.Fatalf("read embedded %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	bad := `{"version":"x","species":[{"id":"OAK","base_population":1}],"biomes":{"GRASSLAND":{"coverage":0.5,"weights":[{"id":"ELM","weight":1}]}}}`
	if err := os.WriteFile(filepath.Join(dir, "flora.json"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write flora: %v", err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Fatalf("expected unknown species error")
	}
}

func TestLoadDir_DigestIgnoresWhitespace(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"flora.json", "fauna.json", "resources.json"} {
		b, err := embedded.ReadFile("data/" + name)
		if err != nil {
			t.Fatalf("read embedded %s: %v", name, err)
		}
		b = append([]byte("\n\n  "), b...)
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	got, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got.Digest != MustDefault().Digest {
		t.Fatalf("digest changed with whitespace only")
	}
}

func TestPick(t *testing.T) {
	ws := []Weighted{{ID: "A", Weight: 1}, {ID: "B", Weight: 3}}
	if Pick(ws, 0) != 0 || Pick(ws, 0.24) != 0 || Pick(ws, 0.25) != 1 || Pick(ws, 0.999) != 1 {
		t.Fatalf("Pick boundaries wrong")
	}
	if Pick(nil, 0.5) != -1 {
		t.Fatalf("empty table should return -1")
	}
}
