package tui

import (
	"fmt"
	"math"
	"strings"

	"mandi/internal/orchestrator"
	"mandi/internal/persona"
)

var stageOrder = []orchestrator.Stage{
	orchestrator.StageChat,
	orchestrator.StageConfirming,
	orchestrator.StageFinalized,
}

func (m model) stageProgressLine(width int) string {
	current := 0
	for i, st := range stageOrder {
		if st == m.stage() {
			current = i + 1
		}
	}
	barWidth := minInt(24, maxInt(9, width-40))
	bar := renderProgressBar(barWidth, current, len(stageOrder))

	names := make([]string, 0, len(stageOrder))
	for _, st := range stageOrder {
		name := string(st)
		if st == m.stage() {
			name = strings.ToUpper(name)
		}
		names = append(names, name)
	}
	return truncateText(fmt.Sprintf("stage  %s  %s", bar, strings.Join(names, " > ")), width)
}

func renderProgressBar(width int, current int, total int) string {
	if width <= 0 {
		return "[]"
	}
	if total <= 0 {
		if current <= 0 {
			return "[" + strings.Repeat("░", width) + "]"
		}
		return "[" + strings.Repeat("█", width) + "]"
	}

	ratio := float64(current) / float64(total)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	if current > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// priceGapLine shows how far the running offer sits from the listed price.
func (m model) priceGapLine(width int) string {
	if m.session == nil || m.session.Listing.PricePerUnit <= 0 {
		return "-"
	}
	listed := m.session.Listing.PricePerUnit
	offer := m.session.Offer.Price
	pct := (offer - listed) / listed * 100
	gap := int(math.Round(math.Abs(pct)))
	meter := miniMeter(minInt(gap, 30), 30, minInt(12, maxInt(4, width-24)))
	return truncateText(fmt.Sprintf("%s %+.1f%%  %s", meter, pct, m.activityLine(20)), width)
}

func (m model) activityLine(width int) string {
	if len(m.personas) == 0 {
		return "-"
	}

	maxTurnsBySpeaker := maxSpeakerTurns(m.speakerTurns)
	parts := make([]string, 0, len(m.personas))
	for _, p := range m.personas {
		label := personaInitial(p)
		meter := miniMeter(m.speakerTurns[p.ID], maxTurnsBySpeaker, 4)
		parts = append(parts, fmt.Sprintf("%s%s", label, meter))
	}
	return truncateText(strings.Join(parts, " "), width)
}

func miniMeter(value int, maxValue int, width int) string {
	if width <= 0 {
		return ""
	}
	if maxValue <= 0 {
		return strings.Repeat("·", width)
	}
	filled := int((float64(value) / float64(maxValue)) * float64(width))
	if value > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}

func personaInitial(p persona.Persona) string {
	name := strings.TrimSpace(persona.DisplayName(p))
	if name == "" {
		return "?"
	}
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}

func maxSpeakerTurns(turns map[string]int) int {
	maxTurns := 0
	for _, t := range turns {
		if t > maxTurns {
			maxTurns = t
		}
	}
	if maxTurns <= 0 {
		return 1
	}
	return maxTurns
}
