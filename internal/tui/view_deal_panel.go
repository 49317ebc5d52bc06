package tui

import (
	"fmt"
	"strings"

	"mandi/internal/persona"
	"mandi/internal/render"
)

func (m *model) buildDealPanel(width int, maxLines int) string {
	if maxLines <= 0 {
		maxLines = 1
	}
	metaWidth := maxInt(10, width-4)

	l := m.listing
	lines := []string{
		truncateText(fmt.Sprintf("%s · %s %s", orDash(l.ProduceName), render.FormatNumber(l.Quantity), l.Unit), width),
		"  " + truncateText(fmt.Sprintf("listed ₹%s / %s", render.FormatNumber(l.PricePerUnit), l.Unit), metaWidth),
	}
	if l.Quality != "" || l.Location != "" {
		lines = append(lines, "  "+truncateText(strings.TrimSpace(l.Quality+" "+l.Location), metaWidth))
	}
	if m.session != nil {
		lines = append(lines, "  "+truncateText("offer "+describeOffer(m.session), metaWidth))
		if m.session.Deal != nil {
			lines = append(lines, "  "+truncateText("deal "+m.session.Deal.ID, metaWidth))
		}
	}
	lines = append(lines, "")

	maxTurns := maxSpeakerTurns(m.speakerTurns)
	for _, p := range m.personas {
		block := m.partyBlock(p, maxTurns, width, metaWidth)
		if len(lines)+len(block) > maxLines {
			break
		}
		lines = append(lines, block...)
	}

	if strings.TrimSpace(m.lastSpeaker) != "" {
		lines = appendOverflowLine(lines, "last speaker: "+truncateText(m.lastSpeaker, width), maxLines, width)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

func (m *model) partyBlock(p persona.Persona, maxTurns int, width int, metaWidth int) []string {
	displayName := persona.DisplayName(p)
	marker := " "
	if strings.TrimSpace(m.lastSpeaker) != "" && displayName == m.lastSpeaker {
		marker = ">"
	}
	side := string(p.Role)
	if p.Role == m.role {
		side += ", you"
	}

	turns := m.speakerTurns[p.ID]
	block := []string{
		fmt.Sprintf("%s %s [%dT] %s", marker, truncateText(displayName, maxInt(10, width-14)), turns, miniMeter(turns, maxTurns, 4)),
		"    " + truncateText(side+" | "+orDash(p.Location), metaWidth),
	}
	if strings.TrimSpace(p.Style) != "" {
		block = append(block, "    "+truncateText("style: "+p.Style, metaWidth))
	}
	return block
}

func appendOverflowLine(lines []string, line string, maxLines int, width int) []string {
	line = truncateText(line, maxInt(12, width))
	if maxLines <= 0 {
		return lines
	}
	if len(lines) < maxLines {
		return append(lines, line)
	}
	if len(lines) == 0 {
		return lines
	}
	lines[maxLines-1] = line
	return lines
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

