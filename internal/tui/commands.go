package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mandi/internal/commandutil"
	"mandi/internal/extract"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/render"
	"mandi/internal/store"
)

const (
	cmdStop   = "/stop"
	cmdFollow = "/follow"
)

func (m *model) handleCommand(line string) tea.Cmd {
	if !commandutil.IsCommand(line) {
		return m.handleMessage(line)
	}

	command, arg := parseCommand(line)
	switch command {
	case commandutil.CmdExit:
		return m.handleExitCommand()
	case cmdStop:
		return m.handleStopCommand(arg)
	case cmdFollow:
		return m.handleFollowCommand(arg)
	case commandutil.CmdHelp:
		m.appendHelp()
		return nil
	case commandutil.CmdListing:
		return m.handleListingCommand(arg)
	case commandutil.CmdLoad:
		return m.handleLoadCommand(arg)
	case commandutil.CmdRole:
		return m.handleRoleCommand(arg)
	case commandutil.CmdLang:
		m.handleLangCommand(arg)
		return nil
	case commandutil.CmdShow:
		m.appendSessionSummary()
		return nil
	case commandutil.CmdConfirm:
		return m.handleConfirmCommand()
	case commandutil.CmdEdit:
		m.handleEditCommand()
		return nil
	case commandutil.CmdReset:
		return m.guardIdle(m.startSessionCmd)
	default:
		m.appendLog("unknown command. Use /help to list commands.")
		return nil
	}
}

func (m *model) handleExitCommand() tea.Cmd {
	m.cancelCall()
	m.appendLog("bye")
	return tea.Quit
}

func (m *model) handleStopCommand(arg string) tea.Cmd {
	if arg != "" {
		m.appendLog("usage: /stop")
		return nil
	}
	if !m.running || m.callCancel == nil {
		m.appendLog("nothing running to stop")
		return nil
	}
	m.appendLog("stop requested...")
	m.callCancel()
	return nil
}

func (m *model) handleFollowCommand(arg string) tea.Cmd {
	mode := strings.ToLower(strings.TrimSpace(arg))
	if mode == "" || mode == "toggle" {
		m.autoFollow = !m.autoFollow
		if m.autoFollow {
			m.logViewport.GotoBottom()
		}
		m.appendLog(fmt.Sprintf("auto-follow: %s", onOff(m.autoFollow)))
		return nil
	}

	switch mode {
	case "on":
		m.autoFollow = true
		m.logViewport.GotoBottom()
		m.appendLog("auto-follow: ON")
	case "off":
		m.autoFollow = false
		m.appendLog("auto-follow: OFF")
	default:
		m.appendLog("usage: /follow [on|off|toggle]")
	}
	return nil
}

func (m *model) handleMessage(text string) tea.Cmd {
	if m.running {
		m.appendLog("still waiting for the last reply")
		return nil
	}
	if m.session == nil {
		m.appendLog("no negotiation running; use /reset")
		return nil
	}

	callCtx, cancel := context.WithCancel(m.ctx)
	m.callCancel = cancel
	m.running = true
	m.runningSince = m.now()
	return tea.Batch(handleMessageCmd(callCtx, m.engine, m.session, text), m.spin.Tick)
}

func (m *model) handleListingCommand(arg string) tea.Cmd {
	if arg == "" {
		m.appendLog("usage: /listing <description>")
		return nil
	}
	return m.guardIdle(func() tea.Cmd {
		m.running = true
		m.runningSince = m.now()
		return tea.Batch(extractListingCmd(m.ctx, m.engine, arg, m.locale), m.spin.Tick)
	})
}

func (m *model) handleLoadCommand(arg string) tea.Cmd {
	if arg == "" {
		m.appendLog("usage: /load <listing.json>")
		return nil
	}
	l, err := m.loadListing(arg)
	if err != nil {
		m.appendLog(fmt.Sprintf("load failed: %v", err))
		return nil
	}
	m.listing = l
	return m.guardIdle(m.startSessionCmd)
}

func (m *model) handleRoleCommand(arg string) tea.Cmd {
	role, err := persona.ParseRole(arg)
	if err != nil {
		m.appendLog("usage: /role <seller|buyer>")
		return nil
	}
	m.role = role
	return m.guardIdle(m.startSessionCmd)
}

func (m *model) handleLangCommand(arg string) {
	if arg == "" {
		codes := make([]string, 0, len(locale.Supported()))
		for _, lang := range locale.Supported() {
			codes = append(codes, string(lang.Code))
		}
		m.appendLog("usage: /lang <code>; supported: " + strings.Join(codes, ", "))
		return
	}
	m.locale = locale.Resolve(arg)
	if m.session != nil && !m.running {
		m.session.Locale = m.locale
	}
	m.appendLog(fmt.Sprintf("language: %s (%s)", locale.Lookup(m.locale).Name, m.locale))
}

// handleConfirmCommand confirms and saves on a copy of the session; the
// model adopts the copy only once the deal is stored.
func (m *model) handleConfirmCommand() tea.Cmd {
	if m.running || m.session == nil {
		m.appendLog("nothing to confirm yet")
		return nil
	}
	callCtx, cancel := context.WithCancel(m.ctx)
	m.callCancel = cancel
	m.running = true
	m.runningSince = m.now()
	return confirmDealCmd(callCtx, m.engine, m.store, m.session)
}

func (m *model) handleEditCommand() {
	if m.running || m.session == nil {
		m.appendLog("nothing to edit yet")
		return
	}
	if err := m.engine.Edit(m.session); err != nil {
		m.appendLog(fmt.Sprintf("edit failed: %v", err))
		return
	}
	m.recordTurn(m.session.Turns[len(m.session.Turns)-1])
}

func (m *model) guardIdle(next func() tea.Cmd) tea.Cmd {
	if m.running {
		m.appendLog("still waiting for the last reply")
		return nil
	}
	return next()
}

func (m *model) startSessionCmd() tea.Cmd {
	engine := m.engine
	ctx := m.ctx
	input := orchestrator.StartInput{
		Listing:   m.listing,
		Personas:  append([]persona.Persona(nil), m.personas...),
		HumanRole: m.role,
		Locale:    m.locale,
	}
	return func() tea.Msg {
		s, err := engine.Start(ctx, input)
		return sessionStartedMsg{session: s, err: err}
	}
}

func (m *model) appendSessionSummary() {
	if m.session == nil {
		m.appendLog("no negotiation running")
		return
	}
	s := m.session
	lines := []string{
		"listing: " + describeListing(s.Listing),
		"offer: " + describeOffer(s),
		fmt.Sprintf("stage: %s | role: %s | language: %s", s.Stage, s.HumanRole, s.Locale),
		fmt.Sprintf("turns: %d (ai %d, fallback %d)", len(s.Turns), s.Metrics.AITurns, s.Metrics.FallbackTurns),
	}
	if s.Context.MarketPrice > 0 {
		lines = append(lines, fmt.Sprintf("mandi benchmark: ₹%s per %s", render.FormatNumber(s.Context.MarketPrice), s.Listing.Unit))
	}
	if s.Deal != nil {
		lines = append(lines, "deal: "+s.Deal.ID)
	}
	m.appendLogs(lines...)
}

func (m *model) appendLog(line string) {
	m.appendLogs(line)
}

func (m *model) appendLogs(lines ...string) {
	if len(lines) == 0 {
		return
	}
	m.logs = append(m.logs, lines...)

	trimmed := false
	if len(m.logs) > logBufferMax {
		m.logs = m.logs[len(m.logs)-logBufferMax:]
		trimmed = true
	}

	if trimmed || m.wrappedLogs == nil || m.wrappedWidth != m.logViewport.Width {
		m.refreshLogViewport()
		return
	}

	m.wrappedLogs = append(m.wrappedLogs, wrapLogLines(lines, m.logViewport.Width)...)
	m.logViewport.SetContent(strings.Join(m.wrappedLogs, "\n"))
	if m.autoFollow {
		m.logViewport.GotoBottom()
	}
}

func (m *model) appendTurnLog(turn orchestrator.Turn) {
	m.appendLogs(formatTurnLines(turn)...)
}

func (m *model) appendHelp() {
	lines := []string{"commands:"}
	for _, line := range commandutil.HelpLines() {
		lines = append(lines, "  "+line)
	}
	lines = append(lines,
		"  /stop                cancel the reply being generated",
		"  /follow [mode]       auto-follow log (on/off/toggle)",
		"shortcuts: Ctrl+P/Ctrl+N history, Ctrl+F follow toggle, PgUp/PgDn/Home/End scroll, wheel/trackpad scroll, Ctrl+L clear",
	)
	m.appendLogs(lines...)
}

func (m *model) pushHistory(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(m.commandHistory) == 0 || m.commandHistory[len(m.commandHistory)-1] != line {
		m.commandHistory = append(m.commandHistory, line)
	}
	m.historyCursor = len(m.commandHistory)
}

func (m *model) historyPrev() string {
	if len(m.commandHistory) == 0 {
		return ""
	}
	if m.historyCursor > 0 {
		m.historyCursor--
	}
	return m.commandHistory[m.historyCursor]
}

func (m *model) historyNext() string {
	if len(m.commandHistory) == 0 {
		return ""
	}
	if m.historyCursor < len(m.commandHistory)-1 {
		m.historyCursor++
		return m.commandHistory[m.historyCursor]
	}
	m.historyCursor = len(m.commandHistory)
	return ""
}

// handleMessageCmd works on a copy of the session so that the view never
// reads a session the engine is still mutating.
func handleMessageCmd(ctx context.Context, engine Engine, s *orchestrator.Session, text string) tea.Cmd {
	working := cloneSession(s)
	return func() tea.Msg {
		reply, err := engine.Handle(ctx, working, text)
		return replyMsg{session: working, reply: reply, err: err}
	}
}

func extractListingCmd(ctx context.Context, engine Engine, text string, code locale.Code) tea.Cmd {
	return func() tea.Msg {
		l, err := engine.ExtractListing(ctx, text, code)
		return listingExtractedMsg{listing: l, err: err}
	}
}

func confirmDealCmd(ctx context.Context, engine Engine, st store.Store, s *orchestrator.Session) tea.Cmd {
	working := cloneSession(s)
	return func() tea.Msg {
		deal, path, err := engine.ConfirmAndSave(ctx, working, st)
		return dealConfirmedMsg{session: working, deal: deal, path: path, err: err}
	}
}

func cloneSession(s *orchestrator.Session) *orchestrator.Session {
	c := *s
	c.Turns = append([]orchestrator.Turn(nil), s.Turns...)
	c.Personas = append([]persona.Persona(nil), s.Personas...)
	if s.Deal != nil {
		deal := *s.Deal
		c.Deal = &deal
	}
	return &c
}

func listingErrorText(err error, code locale.Code) string {
	if errors.Is(err, extract.ErrIncompleteListing) {
		return locale.Message(locale.KeyExtractionHelp, code)
	}
	return fmt.Sprintf("listing failed: %v", err)
}

func describeListing(l listing.Listing) string {
	return fmt.Sprintf("%s, %s %s at ₹%s per %s (%s)",
		l.ProduceName, render.FormatNumber(l.Quantity), l.Unit, render.FormatNumber(l.PricePerUnit), l.Unit, l.ID)
}

func describeOffer(s *orchestrator.Session) string {
	return fmt.Sprintf("₹%s x %s %s = ₹%s",
		render.FormatNumber(s.Offer.Price), render.FormatNumber(s.Offer.Quantity), s.Listing.Unit,
		render.FormatNumber(s.Offer.Total()))
}
