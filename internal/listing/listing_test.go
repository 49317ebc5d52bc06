package listing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mandi/internal/extract"
)

func TestNormalizeAndValidate(t *testing.T) {
	l, err := NormalizeAndValidate(Listing{
		ProduceName:  "  Rice ",
		Quantity:     20,
		Unit:         "qtl",
		PricePerUnit: 3000,
	})
	if err != nil {
		t.Fatalf("NormalizeAndValidate: %v", err)
	}
	if l.ProduceName != "Rice" || l.Unit != "Quintal" {
		t.Fatalf("unexpected normalization: %#v", l)
	}
	if !strings.HasPrefix(l.ID, "LST-") {
		t.Fatalf("expected generated id, got %q", l.ID)
	}
}

func TestNormalizeAndValidateDefaults(t *testing.T) {
	l, err := NormalizeAndValidate(Listing{ID: "x", Quantity: 5, PricePerUnit: 900, Unit: "Bags"})
	if err != nil {
		t.Fatalf("NormalizeAndValidate: %v", err)
	}
	if l.ProduceName != DefaultProduceName {
		t.Fatalf("expected default produce name, got %q", l.ProduceName)
	}
	if l.Unit != extract.Bags {
		t.Fatalf("expected bags, got %q", l.Unit)
	}
	if l.ID != "x" {
		t.Fatalf("id should be kept, got %q", l.ID)
	}

	l, err = NormalizeAndValidate(Listing{Quantity: 5, PricePerUnit: 900})
	if err != nil {
		t.Fatalf("NormalizeAndValidate: %v", err)
	}
	if l.Unit != "Quintal" {
		t.Fatalf("expected quintal default, got %q", l.Unit)
	}
}

func TestNormalizeAndValidateRejects(t *testing.T) {
	tests := map[string]Listing{
		"zero quantity":   {Quantity: 0, PricePerUnit: 100},
		"zero price":      {Quantity: 10, PricePerUnit: 0},
		"negative market": {Quantity: 10, PricePerUnit: 100, MarketPrice: -1},
		"unknown unit":    {Quantity: 10, PricePerUnit: 100, Unit: "crate"},
	}
	for name, l := range tests {
		if _, err := NormalizeAndValidate(l); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestFromDraft(t *testing.T) {
	draft, err := extract.Listing("50 quintal rice for 3000 rupees")
	if err != nil {
		t.Fatalf("extract.Listing: %v", err)
	}
	l, err := FromDraft(draft)
	if err != nil {
		t.Fatalf("FromDraft: %v", err)
	}
	if l.ProduceName != "Rice" || l.Quantity != 50 || l.PricePerUnit != 3000 || l.Unit != "Quintal" {
		t.Fatalf("unexpected listing: %#v", l)
	}
	if l.Total() != 150000 {
		t.Fatalf("total = %v", l.Total())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listing.json")
	data := `{"id":"L1","produceName":"Wheat","quantity":100,"unit":"quintal","pricePerUnit":2500,"marketPrice":2100}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	ctx := l.Context()
	if ctx.ListingPrice != 2500 || ctx.MarketPrice != 2100 || ctx.Quantity != 100 || ctx.Unit != "Quintal" || ctx.ProduceName != "Wheat" {
		t.Fatalf("unexpected context: %#v", ctx)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSampleIsValid(t *testing.T) {
	if _, err := NormalizeAndValidate(Sample()); err != nil {
		t.Fatalf("sample listing invalid: %v", err)
	}
}
