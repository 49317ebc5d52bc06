package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mandi/internal/catalog"
	"mandi/internal/fallback"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/store"
)

func newTestEngine(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	set, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	engine, err := fallback.New(set, fallback.Config{Seed: 7})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	o, err := orchestrator.New(engine, nil, orchestrator.Config{})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func newTestModel(t *testing.T, cfg Config) model {
	t.Helper()
	if cfg.Engine == nil {
		cfg.Engine = newTestEngine(t)
	}
	if cfg.Locale == "" {
		cfg.Locale = locale.English
	}
	return newModel(context.Background(), cfg)
}

// startedModel runs the start command synchronously and applies its result.
func startedModel(t *testing.T, cfg Config) model {
	t.Helper()
	m := newTestModel(t, cfg)
	updated, _ := m.Update(m.startSessionCmd()())
	next := updated.(model)
	if next.session == nil {
		t.Fatalf("expected a session, logs=%#v", next.logs)
	}
	return next
}

func send(t *testing.T, m model, text string) model {
	t.Helper()
	msg := handleMessageCmd(context.Background(), m.engine, m.session, text)()
	updated, _ := m.Update(msg)
	return updated.(model)
}

func lastLog(m model) string {
	return m.logs[len(m.logs)-1]
}

func TestParseCommand(t *testing.T) {
	cmd, arg := parseCommand("/listing   50 quintal onion")
	if cmd != "/listing" || arg != "50 quintal onion" {
		t.Fatalf("unexpected parse: %q %q", cmd, arg)
	}

	cmd, arg = parseCommand("/status")
	if cmd != "/show" || arg != "" {
		t.Fatalf("unexpected alias parse: %q %q", cmd, arg)
	}

	cmd, arg = parseCommand("/stop")
	if cmd != "/stop" || arg != "" {
		t.Fatalf("unexpected stop parse: %q %q", cmd, arg)
	}

	cmd, arg = parseCommand("/follow off")
	if cmd != "/follow" || arg != "off" {
		t.Fatalf("unexpected follow parse: %q %q", cmd, arg)
	}
}

func TestWrapLogLinesToWidth(t *testing.T) {
	content := wrapLogLinesToWidth([]string{"नमस्ते, प्याज का भाव आज मंडी में थोड़ा ऊपर है, कृपया अपना दाम बताइए।"}, 16)
	if !strings.Contains(content, "\n") {
		t.Fatalf("expected wrapped multiline content, got %q", content)
	}
}

func TestMessageWithoutSessionIsRejected(t *testing.T) {
	m := newTestModel(t, Config{})

	if cmd := m.handleCommand("₹3200"); cmd != nil {
		t.Fatal("expected no command without a session")
	}
	if got := lastLog(m); got != "no negotiation running; use /reset" {
		t.Fatalf("unexpected log: %s", got)
	}
}

func TestStartSessionShowsCounterpart(t *testing.T) {
	m := startedModel(t, Config{})

	joined := strings.Join(m.logs, "\n")
	if !strings.Contains(joined, "negotiating with Ramesh Patel (seller)") {
		t.Fatalf("expected counterpart intro, got %#v", m.logs)
	}
	if len(m.personas) != 2 {
		t.Fatalf("expected default personas on the model, got %d", len(m.personas))
	}
	if m.stage() != orchestrator.StageChat {
		t.Fatalf("expected chat stage, got %s", m.stage())
	}
}

func TestPlainTextStartsCall(t *testing.T) {
	m := startedModel(t, Config{})

	cmd := m.handleCommand("₹3200 for 50 quintal")
	if cmd == nil {
		t.Fatal("expected a command for plain text input")
	}
	if !m.running {
		t.Fatal("expected running state to be true")
	}
	if m.callCancel == nil {
		t.Fatal("expected cancel func to be set")
	}
	if cmd := m.handleCommand("another"); cmd != nil {
		t.Fatal("expected messages to be refused while waiting")
	}
}

func TestReplyUpdatesOfferWithoutTouchingViewSession(t *testing.T) {
	m := startedModel(t, Config{})
	before := m.session

	next := send(t, m, "₹3200")
	if next.running {
		t.Fatal("expected running=false after reply")
	}
	if next.session == before {
		t.Fatal("expected the reply to carry a separate session copy")
	}
	if before.Offer.Price != 3500 {
		t.Fatalf("expected original session untouched, got %v", before.Offer.Price)
	}
	if next.session.Offer.Price != 3200 {
		t.Fatalf("expected running offer 3200, got %v", next.session.Offer.Price)
	}
	if next.speakerTurns["trader"] != 1 || next.speakerTurns["farmer"] != 1 {
		t.Fatalf("unexpected speaker counts: %#v", next.speakerTurns)
	}
}

func TestConfirmSavesDeal(t *testing.T) {
	dir := t.TempDir()
	m := startedModel(t, Config{Store: store.NewFileStore(dir)})
	m = send(t, m, "₹3200")
	m = send(t, m, "yes")
	if m.stage() != orchestrator.StageConfirming {
		t.Fatalf("expected confirming stage, got %s", m.stage())
	}
	if !strings.Contains(strings.Join(m.logs, "\n"), "Confirm deal terms: ₹3200 x 50 Quintal = ₹160000") {
		t.Fatalf("expected confirmation prompt, got %#v", m.logs)
	}

	cmd := m.handleCommand("/confirm")
	if cmd == nil {
		t.Fatal("expected a confirm command")
	}
	if m.stage() != orchestrator.StageConfirming {
		t.Fatalf("view session must stay confirming until saved, got %s", m.stage())
	}

	updated, _ := m.Update(cmd())
	next := updated.(model)
	if next.stage() != orchestrator.StageFinalized {
		t.Fatalf("expected finalized stage, got %s", next.stage())
	}
	if !strings.HasPrefix(next.lastDealPath, dir) {
		t.Fatalf("expected deal saved under %s, got %q", dir, next.lastDealPath)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*-deal.json"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one deal file, got %v err=%v", files, err)
	}

	after := send(t, next, "hello again")
	if !strings.Contains(lastLog(after), "already finalized") {
		t.Fatalf("expected finalized refusal, got %q", lastLog(after))
	}
}

type failingStore struct {
	*store.FileStore
}

func (failingStore) Save(context.Context, *orchestrator.Session) (string, error) {
	return "", errors.New("disk full")
}

func TestConfirmSaveFailureKeepsTermsOpen(t *testing.T) {
	m := startedModel(t, Config{Store: failingStore{FileStore: store.NewFileStore(t.TempDir())}})
	m = send(t, m, "₹3200")
	m = send(t, m, "yes")

	cmd := m.handleCommand("/confirm")
	if cmd == nil {
		t.Fatal("expected a confirm command")
	}
	updated, _ := m.Update(cmd())
	next := updated.(model)
	if next.stage() != orchestrator.StageConfirming || next.session.Deal != nil {
		t.Fatalf("expected confirming without a deal, got %s", next.stage())
	}
	if !strings.Contains(lastLog(next), "confirm failed: save deal") {
		t.Fatalf("expected save failure, got %q", lastLog(next))
	}
	if next.running {
		t.Fatal("confirm must not leave the model running")
	}
}

func TestEditReopensTerms(t *testing.T) {
	m := startedModel(t, Config{})
	m = send(t, m, "₹3200")
	m = send(t, m, "yes")

	m.handleCommand("/edit")
	if m.stage() != orchestrator.StageChat {
		t.Fatalf("expected chat stage after edit, got %s", m.stage())
	}
	if !strings.Contains(strings.Join(m.logs, "\n"), "Terms reopened") {
		t.Fatalf("expected reopen notice, got %#v", m.logs)
	}
}

func TestRoleCommandRestartsAsSeller(t *testing.T) {
	m := startedModel(t, Config{})

	cmd := m.handleCommand("/role seller")
	if cmd == nil {
		t.Fatal("expected restart command")
	}
	updated, _ := m.Update(cmd())
	next := updated.(model)
	if next.session.HumanRole != persona.RoleSeller {
		t.Fatalf("expected seller role, got %s", next.session.HumanRole)
	}
	if !strings.Contains(strings.Join(next.logs, "\n"), "negotiating with Anil Traders (buyer)") {
		t.Fatalf("expected buyer counterpart, got %#v", next.logs)
	}
}

func TestListingCommandExtractsAndRestarts(t *testing.T) {
	m := startedModel(t, Config{})

	msg := extractListingCmd(context.Background(), m.engine, "20 quintal wheat for 2400 rupees", m.locale)()
	updated, cmd := m.Update(msg)
	next := updated.(model)
	if next.listing.ProduceName != "Wheat" {
		t.Fatalf("expected wheat listing, got %#v", next.listing)
	}
	if cmd == nil {
		t.Fatal("expected restart command after extraction")
	}
	updated, _ = next.Update(cmd())
	next = updated.(model)
	if next.session.Listing.PricePerUnit != 2400 {
		t.Fatalf("expected new listing price, got %v", next.session.Listing.PricePerUnit)
	}
}

func TestLoadFailureKeepsListing(t *testing.T) {
	m := startedModel(t, Config{})
	before := m.listing

	if cmd := m.handleCommand("/load " + filepath.Join(t.TempDir(), "missing.json")); cmd != nil {
		t.Fatal("expected no command on load failure")
	}
	if !strings.HasPrefix(lastLog(m), "load failed:") {
		t.Fatalf("unexpected log: %s", lastLog(m))
	}
	if m.listing != before {
		t.Fatal("expected listing to be unchanged")
	}
}

func TestLangCommandSwitchesLocale(t *testing.T) {
	m := startedModel(t, Config{})

	m.handleCommand("/lang ta")
	if m.locale != locale.Tamil || m.session.Locale != locale.Tamil {
		t.Fatalf("expected tamil, got model=%s session=%s", m.locale, m.session.Locale)
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	m := newTestModel(t, Config{})

	if cmd := m.handleCommand("/stop"); cmd != nil {
		t.Fatal("expected nil cmd on stop without a running call")
	}
	if !strings.Contains(lastLog(m), "nothing running to stop") {
		t.Fatalf("unexpected log: %s", lastLog(m))
	}
}

func TestStopCancelsRunningCall(t *testing.T) {
	m := newTestModel(t, Config{})

	called := false
	m.running = true
	m.callCancel = func() { called = true }

	if cmd := m.handleCommand("/stop"); cmd != nil {
		t.Fatal("expected nil cmd on stop")
	}
	if !called {
		t.Fatal("expected cancel func to be called")
	}
}

func TestCtrlCCancelsRunningCall(t *testing.T) {
	m := newTestModel(t, Config{})

	called := false
	m.running = true
	m.callCancel = func() { called = true }

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit cmd on ctrl+c")
	}
	next := updated.(model)
	if !called {
		t.Fatal("expected cancel func to be called on ctrl+c")
	}
	if next.callCancel != nil {
		t.Fatal("expected callCancel to be cleared after ctrl+c")
	}
}

func TestFollowCommand(t *testing.T) {
	m := newTestModel(t, Config{})

	m.autoFollow = true
	_ = m.handleCommand("/follow off")
	if m.autoFollow {
		t.Fatal("expected auto-follow off")
	}
	_ = m.handleCommand("/follow on")
	if !m.autoFollow {
		t.Fatal("expected auto-follow on")
	}
}

func TestMouseWheelScrollUpdatesAutoFollow(t *testing.T) {
	m := newTestModel(t, Config{})

	for i := 0; i < 120; i++ {
		m.appendLog("scroll line")
	}
	if !m.logViewport.AtBottom() {
		t.Fatal("expected viewport at bottom after initial append")
	}

	updated, _ := m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	after := updated.(model)
	if after.autoFollow {
		t.Fatal("expected auto-follow off after wheel up")
	}

	for i := 0; i < 200; i++ {
		updated, _ = after.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
		after = updated.(model)
		if after.logViewport.AtBottom() {
			break
		}
	}
	if !after.autoFollow {
		t.Fatal("expected auto-follow on when wheel down reaches bottom")
	}
}

func TestViewRendersDealPanel(t *testing.T) {
	m := startedModel(t, Config{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	next := updated.(model)

	view := next.View()
	for _, want := range []string{"Mandi Desk", "DEAL", "NEGOTIATION", "Onion", "Ramesh Patel"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view", want)
		}
	}

	compact, _ := next.Update(tea.WindowSizeMsg{Width: 60, Height: 14})
	if !strings.Contains(compact.(model).View(), "stage=chat") {
		t.Fatal("expected compact view meta line")
	}
}

func TestStageProgressLine(t *testing.T) {
	m := newTestModel(t, Config{})
	m.session = &orchestrator.Session{Stage: orchestrator.StageConfirming, Listing: listing.Sample()}

	line := m.stageProgressLine(80)
	if !strings.Contains(line, "CONFIRMING") || !strings.Contains(line, "chat") {
		t.Fatalf("unexpected progress line: %q", line)
	}
}

func TestFormatTurnLinesReadableSpacing(t *testing.T) {
	sellerTurn := orchestrator.Turn{
		Index:       3,
		SpeakerID:   "farmer",
		SpeakerName: "Ramesh Patel",
		Role:        persona.RoleSeller,
		Type:        orchestrator.TurnTypePersona,
		Source:      orchestrator.SourceFallback,
		Content:     "first line\n\nsecond line",
		Timestamp:   time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
	}
	lines := formatTurnLines(sellerTurn)
	if len(lines) < 7 {
		t.Fatalf("expected richer turn block, got %#v", lines)
	}
	if lines[0] != "" {
		t.Fatalf("expected leading blank line, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Fatalf("expected persona separator, got %q", lines[1])
	}
	for _, want := range []string{"turn 3", "[SELLER]", "Ramesh Patel (seller)", "offline"} {
		if !strings.Contains(lines[2], want) {
			t.Fatalf("expected %q in header line %q", want, lines[2])
		}
	}
	if !containsLinePrefix(lines, "  first line") || !containsLinePrefix(lines, "  second line") {
		t.Fatalf("expected content block prefix, got %#v", lines)
	}
	if lines[len(lines)-1] != "" {
		t.Fatalf("expected trailing blank line, got %q", lines[len(lines)-1])
	}

	systemTurn := orchestrator.Turn{
		Index:       4,
		SpeakerID:   orchestrator.SystemSpeakerID,
		SpeakerName: "Mandi",
		Type:        orchestrator.TurnTypeSystem,
		Content:     "Deal confirmed! Invoice generated.",
	}
	systemLines := formatTurnLines(systemTurn)
	if !strings.Contains(systemLines[1], "===") || !strings.Contains(systemLines[2], "[MANDI]") {
		t.Fatalf("unexpected system block: %#v", systemLines)
	}
}

func containsLinePrefix(lines []string, prefix string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func TestDeskLayout(t *testing.T) {
	wide := layoutFor(140, 40)
	if wide.compact || wide.deal != 46 || wide.log != 91 || wide.panelH != 26 {
		t.Fatalf("unexpected wide layout: %#v", wide)
	}
	if w, h := wide.logViewportSize(); w != 89 || h != 22 {
		t.Fatalf("unexpected log viewport %dx%d", w, h)
	}

	narrow := layoutFor(90, 30)
	if narrow.deal != dealPanelMinWidth || narrow.log != 55 {
		t.Fatalf("deal panel must keep its minimum width: %#v", narrow)
	}

	small := layoutFor(60, 14)
	if !small.compact {
		t.Fatalf("expected compact layout, got %#v", small)
	}
	if w, h := small.logViewportSize(); w != 56 || h != 6 {
		t.Fatalf("unexpected compact viewport %dx%d", w, h)
	}

	m := newTestModel(t, Config{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	next := updated.(model)
	if next.logViewport.Width != 89 || next.logViewport.Height != 22 {
		t.Fatalf("viewport not sized from the layout: %dx%d", next.logViewport.Width, next.logViewport.Height)
	}
}
