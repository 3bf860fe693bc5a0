package reference

import (
	"os"
	"path/filepath"
	"testing"

	"bggsync/internal"
	"bggsync/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadIdentifierIndex(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "upc.csv")
	writeFile(t, path, "objectid,upc\n100,012345678905\n,111111111117\n101,garbage\n")

	idx, err := LoadIdentifierIndex(path, internal.KindUPC)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 {
		t.Fatalf("index size %d, want 1", idx.Len())
	}
}

func TestLoadIdentifierIndexMissingFile(t *testing.T) {
	if _, err := LoadIdentifierIndex(filepath.Join(t.TempDir(), "nope.csv"), internal.KindUPC); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestLoadIdentifierIndexes(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "export_boardgames_external_ids_upc.csv"), "objectid,upc\n100,012345678905\n")
	writeFile(t, filepath.Join(tmp, "export_boardgames_external_ids_gtin.csv"), "objectid,gtin\n200,4005556000456\n")
	writeFile(t, filepath.Join(tmp, "export_boardgames_external_ids_isbn.csv"), "objectid,isbn\n300,0306406152\n")

	cfg := config.Config{DataDir: tmp}
	set, err := LoadIdentifierIndexes(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i, idx := range set.Ordered() {
		if idx == nil || idx.Len() != 1 {
			t.Fatalf("index %d not loaded", i)
		}
	}
	if set.Ordered()[0].Kind != internal.KindUPC {
		t.Fatalf("priority order wrong: %v", set.Ordered()[0].Kind)
	}
}

func TestLoadUniverse(t *testing.T) {
	tmp := t.TempDir()
	primary := filepath.Join(tmp, "primary.csv")
	rpg := filepath.Join(tmp, "rpg.csv")
	writeFile(t, primary, "100,Brass Birmingham\n200,Spirit Island\n")
	writeFile(t, rpg, "300,Mothership\n")

	universe, err := LoadUniverse(primary, rpg)
	if err != nil {
		t.Fatal(err)
	}
	if len(universe) != 3 {
		t.Fatalf("universe size %d, want 3", len(universe))
	}
	if !universe.Contains("300") {
		t.Fatal("rpg object id missing from universe")
	}
}
