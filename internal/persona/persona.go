package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	MinPersonas = 2
	MaxPersonas = 12
)

// Role is the side of a negotiation a participant speaks for.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
	// RoleAny marks catalog lines either side may say.
	RoleAny Role = "any"
)

// ParseRole accepts seller/buyer and the farmer/trader aliases.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "seller", "farmer", "s":
		return RoleSeller, nil
	case "buyer", "trader", "b":
		return RoleBuyer, nil
	default:
		return "", fmt.Errorf("unknown role %q: want seller or buyer", raw)
	}
}

// Counterpart returns the other side of the negotiation.
func (r Role) Counterpart() Role {
	if r == RoleSeller {
		return RoleBuyer
	}
	return RoleSeller
}

func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleBuyer
}

type Persona struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Location string `json:"location,omitempty"`
	Style    string `json:"style,omitempty"`
	Greeting string `json:"greeting,omitempty"`
}

func LoadFromFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var personas []Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		return nil, fmt.Errorf("parse persona json: %w", err)
	}

	normalized, err := NormalizeAndValidate(personas)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func NormalizeAndValidate(personas []Persona) ([]Persona, error) {
	if len(personas) < MinPersonas {
		return nil, fmt.Errorf("at least %d personas are required", MinPersonas)
	}
	if len(personas) > MaxPersonas {
		return nil, fmt.Errorf("at most %d personas are allowed", MaxPersonas)
	}

	seen := make(map[string]struct{}, len(personas))
	roles := make(map[Role]bool, 2)
	out := make([]Persona, 0, len(personas))

	for i, p := range personas {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.Location = strings.TrimSpace(p.Location)
		p.Style = strings.TrimSpace(p.Style)
		p.Greeting = strings.TrimSpace(p.Greeting)

		if p.ID == "" {
			return nil, fmt.Errorf("persona[%d].id is required", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("persona[%d].name is required", i)
		}
		role, err := ParseRole(string(p.Role))
		if err != nil {
			return nil, fmt.Errorf("persona[%d].role: %w", i, err)
		}
		p.Role = role
		if _, exists := seen[p.ID]; exists {
			return nil, fmt.Errorf("duplicate persona id: %s", p.ID)
		}
		seen[p.ID] = struct{}{}
		roles[role] = true

		if p.Style == "" {
			p.Style = "polite"
		}

		out = append(out, p)
	}

	if !roles[RoleSeller] || !roles[RoleBuyer] {
		return nil, fmt.Errorf("personas must include at least one seller and one buyer")
	}
	return out, nil
}

// Defaults is the built-in seller/buyer pair used when no persona file is
// given.
func Defaults() []Persona {
	return []Persona{
		{
			ID:       "farmer",
			Name:     "Ramesh Patel",
			Role:     RoleSeller,
			Location: "Nashik",
			Style:    "warm but firm on price, proud of produce quality",
		},
		{
			ID:       "trader",
			Name:     "Anil Traders",
			Role:     RoleBuyer,
			Location: "Pune APMC",
			Style:    "practical bargainer who quotes mandi rates",
		},
	}
}

// ForRole returns the first persona speaking for role.
func ForRole(personas []Persona, role Role) (Persona, bool) {
	for _, p := range personas {
		if p.Role == role {
			return p, true
		}
	}
	return Persona{}, false
}

func DisplayName(p Persona) string {
	name := strings.TrimSpace(p.Name)
	location := strings.TrimSpace(p.Location)
	switch {
	case name == "":
		return location
	case location == "":
		return name
	default:
		return fmt.Sprintf("%s (%s)", name, location)
	}
}
