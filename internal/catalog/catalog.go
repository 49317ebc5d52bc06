// Package catalog loads the seller and buyer response catalogs: ordered
// pattern entries with weighted, per-locale templates plus a default set
// used when nothing matches.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mandi/internal/locale"
	"mandi/internal/persona"
	"mandi/internal/render"
)

// DefaultWeight applies to entries that do not set one.
const DefaultWeight = 0.5

//go:embed data/*.yaml
var embedded embed.FS

// Entry is one intent pattern with its response templates.
type Entry struct {
	Intent    string
	Pattern   *regexp.Regexp
	Role      persona.Role
	Weight    float64
	Agreed    bool
	Templates map[locale.Code][]string
}

// TemplatesFor returns the templates for code, or the English list when the
// entry has none for that locale.
func (e Entry) TemplatesFor(code locale.Code) []string {
	return pick(e.Templates, code)
}

// Catalog holds the entries one persona can answer with.
type Catalog struct {
	Role     persona.Role
	Entries  []Entry
	Defaults map[locale.Code][]string
}

// DefaultsFor returns the no-match templates for code with English fallback.
func (c *Catalog) DefaultsFor(code locale.Code) []string {
	return pick(c.Defaults, code)
}

// Set is the pair of persona catalogs.
type Set struct {
	catalogs map[persona.Role]*Catalog
}

// For returns the catalog voiced by role.
func (s *Set) For(role persona.Role) (*Catalog, bool) {
	c, ok := s.catalogs[role]
	return c, ok
}

// Load parses the catalogs compiled into the binary.
func Load() (*Set, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalogs: %w", err)
	}
	return LoadFS(sub)
}

// LoadFS parses every *.yaml file at the root of fsys. Files whose role is
// "any" contribute their entries to both personas after the persona's own
// entries.
func LoadFS(fsys fs.FS) (*Set, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list catalogs: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("no catalog files found")
	}
	sort.Strings(names)

	byRole := map[persona.Role]*Catalog{}
	var shared []Entry
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", name, err)
		}
		c, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path.Base(name), err)
		}
		if c.Role == persona.RoleAny {
			shared = append(shared, c.Entries...)
			continue
		}
		if _, exists := byRole[c.Role]; exists {
			return nil, fmt.Errorf("catalog %s: duplicate catalog for role %s", name, c.Role)
		}
		byRole[c.Role] = c
	}

	for _, role := range []persona.Role{persona.RoleSeller, persona.RoleBuyer} {
		c, ok := byRole[role]
		if !ok {
			return nil, fmt.Errorf("missing %s catalog", role)
		}
		c.Entries = append(c.Entries, shared...)
	}
	return &Set{catalogs: byRole}, nil
}

type rawCatalog struct {
	Role     string              `yaml:"role"`
	Entries  []rawEntry          `yaml:"entries"`
	Defaults map[string][]string `yaml:"defaults"`
}

type rawEntry struct {
	Intent    string              `yaml:"intent"`
	Pattern   string              `yaml:"pattern"`
	Role      string              `yaml:"role"`
	Weight    *float64            `yaml:"weight"`
	Agreed    bool                `yaml:"agreed"`
	Templates map[string][]string `yaml:"templates"`
}

// Parse decodes and validates one catalog document.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	role, err := parseRole(raw.Role)
	if err != nil {
		return nil, err
	}

	c := &Catalog{Role: role}
	if role != persona.RoleAny {
		defaults, err := templateMap(raw.Defaults)
		if err != nil {
			return nil, fmt.Errorf("defaults: %w", err)
		}
		c.Defaults = defaults
	}

	c.Entries = make([]Entry, 0, len(raw.Entries))
	for i, re := range raw.Entries {
		entry, err := buildEntry(re, role)
		if err != nil {
			return nil, fmt.Errorf("entries[%d] (%s): %w", i, strings.TrimSpace(re.Intent), err)
		}
		c.Entries = append(c.Entries, entry)
	}
	return c, nil
}

func buildEntry(raw rawEntry, fileRole persona.Role) (Entry, error) {
	intent := strings.TrimSpace(raw.Intent)
	if intent == "" {
		return Entry{}, errors.New("intent is required")
	}
	if strings.TrimSpace(raw.Pattern) == "" {
		return Entry{}, errors.New("pattern is required")
	}
	pattern, err := regexp.Compile(raw.Pattern)
	if err != nil {
		return Entry{}, fmt.Errorf("compile pattern: %w", err)
	}

	role := fileRole
	if strings.TrimSpace(raw.Role) != "" {
		if role, err = parseRole(raw.Role); err != nil {
			return Entry{}, err
		}
	}

	weight := DefaultWeight
	if raw.Weight != nil {
		weight = *raw.Weight
	}
	if weight <= 0 {
		return Entry{}, fmt.Errorf("weight must be positive, got %v", weight)
	}

	templates, err := templateMap(raw.Templates)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Intent:    intent,
		Pattern:   pattern,
		Role:      role,
		Weight:    weight,
		Agreed:    raw.Agreed,
		Templates: templates,
	}, nil
}

func templateMap(raw map[string][]string) (map[locale.Code][]string, error) {
	out := make(map[locale.Code][]string, len(raw))
	for key, list := range raw {
		code := locale.Code(strings.ToLower(strings.TrimSpace(key)))
		if !locale.IsSupported(code) {
			return nil, fmt.Errorf("unsupported locale %q", key)
		}
		cleaned := make([]string, 0, len(list))
		for _, tmpl := range list {
			tmpl = strings.TrimSpace(tmpl)
			if tmpl == "" {
				continue
			}
			for _, slot := range render.Placeholders(tmpl) {
				if !render.KnownSlot(slot) {
					return nil, fmt.Errorf("locale %s: unknown slot {%s}", code, slot)
				}
			}
			cleaned = append(cleaned, tmpl)
		}
		if len(cleaned) > 0 {
			out[code] = cleaned
		}
	}
	if len(out[locale.English]) == 0 {
		return nil, errors.New("an en template list is required")
	}
	return out, nil
}

func parseRole(raw string) (persona.Role, error) {
	switch persona.Role(strings.ToLower(strings.TrimSpace(raw))) {
	case persona.RoleSeller:
		return persona.RoleSeller, nil
	case persona.RoleBuyer:
		return persona.RoleBuyer, nil
	case persona.RoleAny:
		return persona.RoleAny, nil
	default:
		return "", fmt.Errorf("unknown catalog role %q", raw)
	}
}

func pick(m map[locale.Code][]string, code locale.Code) []string {
	if list, ok := m[code]; ok && len(list) > 0 {
		return list
	}
	return m[locale.English]
}
