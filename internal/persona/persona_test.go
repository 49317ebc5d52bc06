package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeAndValidate(t *testing.T) {
	personas := []Persona{
		{ID: " farmer ", Name: " Ramesh ", Role: " Farmer ", Style: " "},
		{ID: "trader", Name: "Anil", Role: "buyer", Location: " Pune "},
	}

	normalized, err := NormalizeAndValidate(personas)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := normalized[0].ID; got != "farmer" {
		t.Fatalf("unexpected id: %s", got)
	}
	if got := normalized[0].Role; got != RoleSeller {
		t.Fatalf("unexpected role: %s", got)
	}
	if got := normalized[0].Style; got != "polite" {
		t.Fatalf("unexpected style: %s", got)
	}
	if got := DisplayName(normalized[1]); got != "Anil (Pune)" {
		t.Fatalf("unexpected display name: %s", got)
	}
}

func TestNormalizeAndValidateDuplicateID(t *testing.T) {
	_, err := NormalizeAndValidate([]Persona{
		{ID: "a", Name: "A", Role: RoleSeller},
		{ID: "a", Name: "B", Role: RoleBuyer},
	})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestNormalizeAndValidateNeedsBothSides(t *testing.T) {
	_, err := NormalizeAndValidate([]Persona{
		{ID: "a", Name: "A", Role: RoleSeller},
		{ID: "b", Name: "B", Role: RoleSeller},
	})
	if err == nil {
		t.Fatal("expected missing buyer error")
	}
}

func TestNormalizeAndValidateUnknownRole(t *testing.T) {
	_, err := NormalizeAndValidate([]Persona{
		{ID: "a", Name: "A", Role: "broker"},
		{ID: "b", Name: "B", Role: RoleBuyer},
	})
	if err == nil {
		t.Fatal("expected role error")
	}
}

func TestParseRoleAndCounterpart(t *testing.T) {
	role, err := ParseRole("Trader")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role != RoleBuyer {
		t.Fatalf("unexpected role: %s", role)
	}
	if role.Counterpart() != RoleSeller || RoleSeller.Counterpart() != RoleBuyer {
		t.Fatal("unexpected counterpart")
	}
	if _, err := ParseRole("any"); err == nil {
		t.Fatal("expected error for any")
	}
}

func TestDefaultsAndForRole(t *testing.T) {
	defaults, err := NormalizeAndValidate(Defaults())
	if err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	seller, ok := ForRole(defaults, RoleSeller)
	if !ok || seller.ID != "farmer" {
		t.Fatalf("unexpected seller: %#v", seller)
	}
	if _, ok := ForRole(nil, RoleBuyer); ok {
		t.Fatal("expected no persona")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.json")
	body := `[{"id":"f","name":"F","role":"seller"},{"id":"b","name":"B","role":"buyer"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	personas, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("unexpected personas: %d", len(personas))
	}
}
