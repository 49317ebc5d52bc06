package turnfmt

import (
	"strings"
	"testing"

	"mandi/internal/orchestrator"
	"mandi/internal/persona"
)

func TestFormatLinesKeepsBlankLinesWhenEnabled(t *testing.T) {
	turn := orchestrator.Turn{
		Index:   1,
		Type:    orchestrator.TurnTypePersona,
		Content: "line1\n\nline2",
	}

	lines := FormatLines(turn, Options{
		Header:         func(orchestrator.Turn) string { return "header" },
		Separator:      func(orchestrator.Turn) string { return "---" },
		KeepBlankLines: true,
	})
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "line1\n\n  line2") {
		t.Fatalf("expected preserved blank line, got %q", joined)
	}
}

func TestFormatLinesSkipsBlankLinesWhenDisabled(t *testing.T) {
	turn := orchestrator.Turn{
		Index:   1,
		Type:    orchestrator.TurnTypePersona,
		Content: "line1\n\nline2",
	}

	lines := FormatLines(turn, Options{
		Header:    func(orchestrator.Turn) string { return "header" },
		Separator: func(orchestrator.Turn) string { return "---" },
	})
	joined := strings.Join(lines, "\n")
	if strings.Contains(joined, "line1\n\n  line2") {
		t.Fatalf("expected blank line to be removed, got %q", joined)
	}
}

func TestHeader(t *testing.T) {
	sellerTurn := orchestrator.Turn{
		Index:       3,
		SpeakerName: "Ramesh Patel",
		Role:        persona.RoleSeller,
		Type:        orchestrator.TurnTypePersona,
		Source:      orchestrator.SourceFallback,
	}
	if got := Header(sellerTurn); got != "[3] Ramesh Patel (seller) · fallback" {
		t.Fatalf("unexpected persona header: %q", got)
	}

	human := orchestrator.Turn{Index: 2, SpeakerID: "trader", Type: orchestrator.TurnTypeHuman, Source: orchestrator.SourceHuman}
	if got := Header(human); got != "[2] trader" {
		t.Fatalf("unexpected human header: %q", got)
	}
}

func TestSystemTurnsUseDoubleSeparator(t *testing.T) {
	lines := FormatLines(orchestrator.Turn{Type: orchestrator.TurnTypeSystem, Content: "Deal confirmed!"}, Options{})
	if lines[1] != "===" || lines[len(lines)-2] != "===" {
		t.Fatalf("unexpected separators: %q", lines)
	}
}
