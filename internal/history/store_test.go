package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "data", "precos.json"), zerolog.Nop())
	if records := store.Load(); len(records) != 0 {
		t.Fatalf("missing file must load as empty, got %d records", len(records))
	}
}

func TestStoreLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precos.json")
	if err := os.WriteFile(path, []byte(`{"not": "a list"`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path, zerolog.Nop())
	if records := store.Load(); len(records) != 0 {
		t.Fatalf("malformed file must load as empty, got %d records", len(records))
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "precos.json")
	store := NewStore(path, zerolog.Nop())

	records := []market.Record{
		record(market.VariantArabica, "2025-09-04", "2025-09-04T18:00:00Z", "2277.03"),
		record(market.VariantConillon, "2025-09-04", "2025-09-04T18:00:00Z", "1402.21"),
	}
	if err := store.Save(records); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := store.Load()
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if !loaded[0].Valor.Equal(records[0].Valor) || loaded[1].Tipo != market.VariantConillon {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestStoreSaveEmptyWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precos.json")
	store := NewStore(path, zerolog.Nop())

	if err := store.Save(nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		t.Fatalf("empty history must persist as a JSON array, got %q", raw)
	}
}

func TestStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "precos.json"), zerolog.Nop())
	if err := store.Save([]market.Record{record(market.VariantArabica, "2025-09-04", "2025-09-04T18:00:00Z", "2277.03")}); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "precos.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}
