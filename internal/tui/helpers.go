package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"mandi/internal/commandutil"
	"mandi/internal/orchestrator"
	"mandi/internal/turnfmt"
)

var tuiCommandAliases = func() map[string]string {
	aliases := make(map[string]string, len(commandutil.Aliases)+2)
	for k, v := range commandutil.Aliases {
		aliases[k] = v
	}
	aliases[cmdStop] = cmdStop
	aliases[cmdFollow] = cmdFollow
	return aliases
}()

func parseCommand(line string) (command string, arg string) {
	return commandutil.Parse(line, tuiCommandAliases)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func wrapLogLines(lines []string, width int) []string {
	if len(lines) == 0 {
		return nil
	}
	if width <= 0 {
		out := make([]string, 0, len(lines))
		out = append(out, lines...)
		return out
	}

	wrapped := make([]string, 0, len(lines)*2)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			wrapped = append(wrapped, "")
			continue
		}
		if strings.Contains(line, "\x1b[") {
			// Keep ANSI-styled lines intact; content lines are wrapped below.
			wrapped = append(wrapped, line)
			continue
		}
		if runewidth.StringWidth(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}
		wrappedText := runewidth.Wrap(line, width)
		wrapped = append(wrapped, strings.Split(wrappedText, "\n")...)
	}
	return wrapped
}

func wrapLogLinesToWidth(lines []string, width int) string {
	return strings.Join(wrapLogLines(lines, width), "\n")
}

func truncateText(text string, width int) string {
	text = strings.TrimSpace(text)
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(text, width, "…")
}

func formatTurnLines(turn orchestrator.Turn) []string {
	return turnfmt.FormatLines(turn, turnfmt.Options{
		Header:         renderTurnHeader,
		Separator:      renderTurnSeparator,
		ContentPrefix:  "  ",
		KeepBlankLines: true,
	})
}

func renderTurnSeparator(turn orchestrator.Turn) string {
	line := strings.Repeat("-", 58)
	if turn.Type == orchestrator.TurnTypeSystem {
		line = strings.Repeat("=", 58)
	}
	return line
}

func renderTurnHeader(turn orchestrator.Turn) string {
	badge, badgeStyle := turnBadge(turn)
	nameStyle := lipgloss.NewStyle().Bold(true).Foreground(speakerColor(turn))
	metaStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("151"))
	if turn.Type == orchestrator.TurnTypeSystem {
		nameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("222"))
	}

	label := turn.SpeakerName
	if turn.Role != "" {
		label += " (" + string(turn.Role) + ")"
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Left,
		badgeStyle.Render(badge),
		" ",
		metaStyle.Render(fmt.Sprintf("turn %d", turn.Index)),
		" | ",
		nameStyle.Render(label),
	)
	if turn.Type == orchestrator.TurnTypePersona && turn.Source == orchestrator.SourceFallback {
		header = lipgloss.JoinHorizontal(lipgloss.Left, header, " ", metaStyle.Render("· offline"))
	}
	if turn.Timestamp.IsZero() {
		return header
	}

	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("151"))
	stamp := turn.Timestamp.Local().Format(time.TimeOnly)
	return lipgloss.JoinHorizontal(lipgloss.Left, header, " | ", timeStyle.Render(stamp))
}

func turnBadge(turn orchestrator.Turn) (string, lipgloss.Style) {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch turn.Type {
	case orchestrator.TurnTypeHuman:
		return "[YOU]", base.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("60"))
	case orchestrator.TurnTypeSystem:
		return "[MANDI]", base.Foreground(lipgloss.Color("230")).Background(lipgloss.Color("166"))
	default:
		return "[" + strings.ToUpper(string(turn.Role)) + "]", base.Foreground(lipgloss.Color("231")).Background(lipgloss.Color("31"))
	}
}

func speakerColor(turn orchestrator.Turn) lipgloss.Color {
	palette := []string{"45", "51", "80", "86", "111", "117", "123", "159", "194"}
	key := turn.SpeakerID
	if key == "" {
		key = turn.SpeakerName
	}
	sum := 0
	for _, r := range key {
		sum += int(r)
	}
	return lipgloss.Color(palette[sum%len(palette)])
}
