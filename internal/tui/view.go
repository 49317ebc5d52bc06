package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mandi/internal/orchestrator"
	"mandi/internal/render"
)

var (
	viewChromeStyle     = lipgloss.NewStyle().Padding(0, 1)
	viewHeroStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("74")).Background(lipgloss.Color("236")).Padding(0, 1)
	viewTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("30")).Padding(0, 1)
	viewSubtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("151")).Italic(true)
	viewMetaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("223")).Bold(true)
	viewChipStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("238")).Padding(0, 1)
	viewChipHotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("31")).Padding(0, 1).Bold(true)
	viewRunningBadge    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("166")).Bold(true).Padding(0, 1)
	viewIdleBadge       = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("60")).Bold(true).Padding(0, 1)
	viewPanelStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("67")).Background(lipgloss.Color("235")).Padding(0, 1)
	viewPanelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("222"))
	viewPanelMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("151"))
	viewCmdRibbonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Background(lipgloss.Color("236")).Padding(0, 1)
	viewHintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("151"))
	viewInputLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("31")).Bold(true).Padding(0, 1)
	viewInputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("74")).Background(lipgloss.Color("236")).Padding(0, 1)
)

func (m model) View() string {
	layout := layoutFor(m.width, m.height)
	if layout.compact {
		return m.renderCompactView()
	}
	contentWidth := layout.content

	hero := m.renderHero(contentWidth)
	commands := m.renderCommandRibbon(contentWidth)

	dealHeader := viewPanelTitleStyle.Render("DEAL")
	dealBody := m.buildDealPanel(layout.dealBodySize())
	dealPanel := viewPanelStyle.
		Width(layout.deal).
		Height(layout.panelH).
		Render(lipgloss.JoinVertical(lipgloss.Left, dealHeader, dealBody))

	lastSpeaker := "-"
	if strings.TrimSpace(m.lastSpeaker) != "" {
		lastSpeaker = m.lastSpeaker
	}
	logMeta := viewPanelMetaStyle.Render(fmt.Sprintf("lines=%d follow=%s last=%s", len(m.logs), onOff(m.autoFollow), truncateText(lastSpeaker, 22)))
	logHeader := viewPanelTitleStyle.Render("NEGOTIATION")
	logPanel := viewPanelStyle.
		Width(layout.log).
		Height(layout.panelH).
		Render(lipgloss.JoinVertical(lipgloss.Left, logHeader, logMeta, m.logViewport.View()))

	body := lipgloss.JoinHorizontal(lipgloss.Top, dealPanel, " ", logPanel)
	footer := m.renderFooter(contentWidth)

	return viewChromeStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		hero,
		commands,
		body,
		footer,
	))
}

func (m model) renderCompactView() string {
	status := m.statusBadge()
	title := lipgloss.JoinHorizontal(lipgloss.Left, viewTitleStyle.Render("Mandi Desk"), " ", status)
	meta := viewMetaStyle.Render(fmt.Sprintf("stage=%s offer=%s follow=%s", m.stage(), m.offerText(), onOff(m.autoFollow)))
	commands := viewCmdRibbonStyle.Render("/show | /confirm | /edit | /lang | /role | /help | /exit")
	hint := viewHintStyle.Render("hint: " + m.inputHint())
	prompt := viewInputBoxStyle.Render(viewInputLabelStyle.Render("INPUT") + " " + m.input.View())

	return viewChromeStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		commands,
		m.logViewport.View(),
		hint,
		prompt,
	))
}

func (m model) renderHero(width int) string {
	produce := m.listing.ProduceName
	if produce == "" {
		produce = "no listing"
	}
	titleLine := lipgloss.JoinHorizontal(
		lipgloss.Left,
		viewTitleStyle.Render("Mandi Desk"),
		" ",
		viewSubtitleStyle.Render(produce+" negotiation"),
	)

	waiting := "idle"
	if m.running {
		waiting = time.Since(m.runningSince).Round(time.Second).String()
	}

	chips := []string{
		m.renderChip("stage "+string(m.stage()), m.stage() == orchestrator.StageConfirming),
		m.renderChip("you "+string(m.role), false),
		m.renderChip("lang "+string(m.locale), false),
		m.renderChip(fmt.Sprintf("turns %d", m.turnCount()), m.running),
		m.renderChip("waiting "+waiting, m.running),
	}

	progress := viewMetaStyle.Render(m.stageProgressLine(maxInt(38, width-8)))
	gap := viewPanelMetaStyle.Render("price vs listing  " + m.priceGapLine(maxInt(18, width-26)))

	resultLine := ""
	if m.lastDealPath != "" {
		resultLine = viewPanelMetaStyle.Render("latest deal  " + truncateText(m.lastDealPath, maxInt(20, width-16)))
	} else if m.lastAdvisory != "" {
		resultLine = viewPanelMetaStyle.Render("advisory  " + truncateText(m.lastAdvisory, maxInt(20, width-14)))
	}

	return viewHeroStyle.Width(width).Render(lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Left, titleLine, "  ", m.statusBadge()),
		lipgloss.JoinHorizontal(lipgloss.Left, chips...),
		progress,
		gap,
		resultLine,
	))
}

func (m model) renderCommandRibbon(width int) string {
	line := "Enter send · Ctrl+P/N history · Ctrl+F follow · PgUp/PgDn/Home/End scroll · Ctrl+L clear"
	return viewCmdRibbonStyle.Width(width).Render(truncateText(line, width))
}

func (m model) renderFooter(width int) string {
	hint := viewHintStyle.Render("hint: " + m.inputHint())
	inputBox := viewInputBoxStyle.Width(width).Render(
		lipgloss.JoinHorizontal(lipgloss.Left, viewInputLabelStyle.Render("INPUT"), " ", m.input.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, hint, inputBox)
}

func (m model) statusBadge() string {
	if m.running {
		return viewRunningBadge.Render("WAITING " + m.spin.View())
	}
	return viewIdleBadge.Render("READY")
}

func (m model) renderChip(text string, hot bool) string {
	if hot {
		return viewChipHotStyle.Render(text + " ")
	}
	return viewChipStyle.Render(text + " ")
}

func (m model) stage() orchestrator.Stage {
	if m.session == nil {
		return orchestrator.StageChat
	}
	return m.session.Stage
}

func (m model) turnCount() int {
	if m.session == nil {
		return 0
	}
	return len(m.session.Turns)
}

func (m model) offerText() string {
	if m.session == nil {
		return "-"
	}
	return "₹" + render.FormatNumber(m.session.Offer.Price)
}

func (m model) inputHint() string {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		if m.stage() == orchestrator.StageConfirming {
			return "terms agreed: /confirm to close the deal or /edit to keep negotiating"
		}
		return "type an offer or a question; plain text is sent to the other side"
	}

	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "/listing"):
		return "new listing: /listing 50 quintal onion for 3500 rupees"
	case strings.HasPrefix(lower, "/load"):
		return "load a listing JSON file"
	case strings.HasPrefix(lower, "/role"):
		return "switch sides: /role seller or /role buyer"
	case strings.HasPrefix(lower, "/lang"):
		return "switch language: /lang hi, /lang ta, ..."
	case strings.HasPrefix(lower, "/show"):
		return "show listing, offer and stage"
	case strings.HasPrefix(lower, "/confirm"):
		return "close the deal on the current offer"
	case strings.HasPrefix(lower, "/edit"):
		return "reopen the terms"
	case strings.HasPrefix(lower, "/reset"):
		return "start over on the same listing"
	case strings.HasPrefix(lower, "/stop"):
		return "cancel the reply being generated"
	case strings.HasPrefix(lower, "/follow"):
		return "auto-follow control: /follow [on|off|toggle]"
	case strings.HasPrefix(lower, "/help"):
		return "show help"
	case strings.HasPrefix(lower, "/exit"):
		return "quit"
	case strings.HasPrefix(lower, "/"):
		return "this may be an unknown command; see /help"
	default:
		return "press Enter to send"
	}
}
