package openai

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"mandi/internal/extract"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/units"
)

const (
	sellerFloorRatio  = 0.85
	buyerCeilingRatio = 1.15
)

func toUsage(u apiUsage) orchestrator.Usage {
	return orchestrator.Usage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func extractOutputText(resp responseBody) string {
	if strings.TrimSpace(resp.OutputText) != "" {
		return strings.TrimSpace(resp.OutputText)
	}

	parts := make([]string, 0, len(resp.Output))
	for _, item := range resp.Output {
		if strings.TrimSpace(item.Text) != "" {
			parts = append(parts, strings.TrimSpace(item.Text))
		}
		for _, content := range item.Content {
			if strings.TrimSpace(content.Text) != "" {
				parts = append(parts, strings.TrimSpace(content.Text))
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// decodeObject unmarshals the single JSON object in raw into dst after
// checking that every required key is present.
func decodeObject(raw string, dst any, requiredKeys ...string) error {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return errors.New("empty model output")
	}

	cleaned = stripCodeFence(cleaned)
	jsonText := extractJSONObject(cleaned)
	if jsonText == "" {
		jsonText = cleaned
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &rawMap); err != nil {
		return err
	}
	for _, key := range requiredKeys {
		if _, ok := rawMap[key]; !ok {
			return errors.New("missing required key: " + key)
		}
	}
	return json.Unmarshal([]byte(jsonText), dst)
}

func parseNegotiation(raw string) (orchestrator.NegotiateOutput, error) {
	var parsed struct {
		Text             string  `json:"text"`
		Status           string  `json:"status"`
		ProposedPrice    float64 `json:"proposedPrice"`
		ProposedQuantity float64 `json:"proposedQuantity"`
	}
	if err := decodeObject(raw, &parsed, "text", "status"); err != nil {
		return orchestrator.NegotiateOutput{}, err
	}

	parsed.Text = strings.TrimSpace(parsed.Text)
	if parsed.Text == "" {
		return orchestrator.NegotiateOutput{}, errors.New("text is required")
	}
	return orchestrator.NegotiateOutput{
		Text:             parsed.Text,
		Status:           strings.ToLower(strings.TrimSpace(parsed.Status)),
		ProposedPrice:    positive(parsed.ProposedPrice),
		ProposedQuantity: positive(parsed.ProposedQuantity),
	}, nil
}

// enforcePriceBounds keeps a seller above 85% and a buyer below 115% of the
// listing price, whatever the model proposed.
func enforcePriceBounds(out orchestrator.NegotiateOutput, input orchestrator.NegotiateInput) orchestrator.NegotiateOutput {
	listed := input.Listing.PricePerUnit
	if out.ProposedPrice <= 0 || listed <= 0 {
		return out
	}
	switch input.Speaker.Role {
	case persona.RoleSeller:
		if floor := roundPrice(listed * sellerFloorRatio); out.ProposedPrice < floor {
			out.ProposedPrice = floor
		}
	case persona.RoleBuyer:
		if ceiling := roundPrice(listed * buyerCeilingRatio); out.ProposedPrice > ceiling {
			out.ProposedPrice = ceiling
		}
	}
	return out
}

func parseModeration(raw string) (orchestrator.ModerateOutput, error) {
	var parsed struct {
		Flagged  bool   `json:"flagged"`
		Reason   string `json:"reason"`
		Advisory string `json:"advisory"`
	}
	if err := decodeObject(raw, &parsed, "flagged"); err != nil {
		return orchestrator.ModerateOutput{}, err
	}
	out := orchestrator.ModerateOutput{
		Flagged:  parsed.Flagged,
		Reason:   strings.TrimSpace(parsed.Reason),
		Advisory: strings.TrimSpace(parsed.Advisory),
	}
	if out.Flagged && out.Advisory == "" {
		out.Advisory = "This message looks unsafe. Proceed with caution."
	}
	return out, nil
}

func parseListingDraft(raw string) (extract.ListingDraft, error) {
	var parsed struct {
		ProduceName  string  `json:"produceName"`
		Quantity     float64 `json:"quantity"`
		Unit         string  `json:"unit"`
		PricePerUnit float64 `json:"pricePerUnit"`
		Description  string  `json:"description"`
	}
	if err := decodeObject(raw, &parsed, "quantity", "pricePerUnit"); err != nil {
		return extract.ListingDraft{}, err
	}
	if parsed.Quantity <= 0 || parsed.PricePerUnit <= 0 {
		return extract.ListingDraft{}, extract.ErrIncompleteListing
	}

	unit := strings.TrimSpace(parsed.Unit)
	if strings.EqualFold(unit, extract.Bags) {
		unit = extract.Bags
	} else if canonical, ok := units.Canonical(unit); ok {
		unit = string(canonical)
	} else {
		unit = string(units.Quintal)
	}
	return extract.ListingDraft{
		ProduceName:  strings.TrimSpace(parsed.ProduceName),
		Quantity:     parsed.Quantity,
		Unit:         unit,
		PricePerUnit: parsed.PricePerUnit,
		Description:  strings.TrimSpace(parsed.Description),
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

func positive(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
