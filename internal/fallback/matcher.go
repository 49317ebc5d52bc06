package fallback

import (
	"strings"

	"mandi/internal/catalog"
	"mandi/internal/locale"
	"mandi/internal/numeral"
	"mandi/internal/persona"
)

// Selection is the template chosen for one message.
type Selection struct {
	Template string
	// Intent is empty when the template came from the default set.
	Intent  string
	Agreed  bool
	Matched bool
}

type candidate struct {
	template string
	weight   float64
	entry    *catalog.Entry
}

// Match picks a template from the responder's catalog. Every entry whose
// pattern matches contributes all of its templates for code, each carrying
// the entry weight, and one is drawn in proportion to weight. Without a match
// a template is drawn uniformly from the catalog defaults. Agreement entries
// are skipped when the message carries a negation.
func (e *Engine) Match(msg string, code locale.Code, responder persona.Role) Selection {
	c, ok := e.catalogs.For(responder)
	if !ok {
		return Selection{Template: lastResort}
	}

	text := numeral.Normalize(msg)
	refusal := hasNegator(splitWords(strings.ToLower(strings.ReplaceAll(text, "’", "'"))))
	var candidates []candidate
	total := 0.0
	for i := range c.Entries {
		entry := &c.Entries[i]
		if entry.Weight <= 0 || (entry.Agreed && refusal) || !entry.Pattern.MatchString(text) {
			continue
		}
		for _, tmpl := range entry.TemplatesFor(code) {
			candidates = append(candidates, candidate{template: tmpl, weight: entry.Weight, entry: entry})
			total += entry.Weight
		}
	}

	if len(candidates) > 0 {
		chosen := e.weighted(candidates, total)
		return Selection{
			Template: chosen.template,
			Intent:   chosen.entry.Intent,
			Agreed:   chosen.entry.Agreed,
			Matched:  true,
		}
	}

	defaults := c.DefaultsFor(code)
	if len(defaults) == 0 {
		return Selection{Template: lastResort}
	}
	return Selection{Template: defaults[e.intn(len(defaults))]}
}

func (e *Engine) weighted(candidates []candidate, total float64) candidate {
	r := e.draw() * total
	for _, c := range candidates {
		if r < c.weight {
			return c
		}
		r -= c.weight
	}
	// Rounding can leave r at the upper edge.
	return candidates[len(candidates)-1]
}

func (e *Engine) draw() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}
