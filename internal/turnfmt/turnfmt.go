package turnfmt

import (
	"fmt"
	"strings"

	"mandi/internal/orchestrator"
)

type Options struct {
	Header         func(orchestrator.Turn) string
	Separator      func(orchestrator.Turn) string
	ContentPrefix  string
	KeepBlankLines bool
}

func FormatLines(turn orchestrator.Turn, opts Options) []string {
	header := Header(turn)
	if opts.Header != nil {
		header = opts.Header(turn)
	}

	separator := defaultSeparator(turn)
	if opts.Separator != nil {
		separator = opts.Separator(turn)
	}

	prefix := opts.ContentPrefix
	if prefix == "" {
		prefix = "  "
	}

	lines := []string{"", separator, header}
	contentLines := strings.Split(strings.TrimSpace(turn.Content), "\n")
	appended := false

	for _, line := range contentLines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if opts.KeepBlankLines {
				lines = append(lines, "")
			}
			continue
		}
		lines = append(lines, prefix+trimmed)
		appended = true
	}
	if !appended {
		lines = append(lines, prefix+"(empty)")
	}
	lines = append(lines, separator, "")
	return lines
}

// Header labels a turn as "[3] Ramesh Patel (seller) · fallback". The
// source is shown only for persona turns.
func Header(turn orchestrator.Turn) string {
	name := strings.TrimSpace(turn.SpeakerName)
	if name == "" {
		name = turn.SpeakerID
	}
	header := fmt.Sprintf("[%d] %s", turn.Index, name)
	if turn.Role != "" {
		header += fmt.Sprintf(" (%s)", turn.Role)
	}
	if turn.Type == orchestrator.TurnTypePersona && turn.Source != "" {
		header += " · " + turn.Source
	}
	return header
}

func defaultSeparator(turn orchestrator.Turn) string {
	if turn.Type == orchestrator.TurnTypeSystem {
		return "==="
	}
	return "---"
}
