package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/render"
	"mandi/internal/store"
)

// Engine is the part of *orchestrator.Orchestrator the TUI drives.
type Engine interface {
	Start(ctx context.Context, input orchestrator.StartInput) (*orchestrator.Session, error)
	Handle(ctx context.Context, s *orchestrator.Session, message string) (orchestrator.Reply, error)
	ConfirmAndSave(ctx context.Context, s *orchestrator.Session, rec orchestrator.Recorder) (orchestrator.Deal, string, error)
	Edit(s *orchestrator.Session) error
	ExtractListing(ctx context.Context, text string, code locale.Code) (listing.Listing, error)
}

type ListingLoaderFunc func(path string) (listing.Listing, error)

type Config struct {
	Engine      Engine
	Store       store.Store
	Listing     listing.Listing
	LoadListing ListingLoaderFunc
	Personas    []persona.Persona
	Role        persona.Role
	Locale      locale.Code
	Now         func() time.Time
}

type App struct {
	cfg Config
}

func NewApp(cfg Config) *App {
	return &App{cfg: normalizeConfig(cfg)}
}

func normalizeConfig(cfg Config) Config {
	if cfg.LoadListing == nil {
		cfg.LoadListing = listing.LoadFromFile
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if !cfg.Role.Valid() {
		cfg.Role = persona.RoleBuyer
	}
	if cfg.Listing.Quantity == 0 {
		cfg.Listing = listing.Sample()
	}
	if cfg.Locale == "" {
		cfg.Locale = locale.Default
	}
	cfg.Locale = locale.Resolve(string(cfg.Locale))
	return cfg
}

func (a *App) Start(ctx context.Context) error {
	if a.cfg.Engine == nil {
		return errors.New("engine is required")
	}

	m := newModel(ctx, a.cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

type model struct {
	ctx context.Context

	engine      Engine
	store       store.Store
	loadListing ListingLoaderFunc
	personas    []persona.Persona
	now         func() time.Time

	listing listing.Listing
	role    persona.Role
	locale  locale.Code
	session *orchestrator.Session

	input        textinput.Model
	logViewport  viewport.Model
	spin         spinner.Model
	logs         []string
	wrappedLogs  []string
	wrappedWidth int
	width        int
	height       int
	running      bool
	runningSince time.Time
	speakerTurns map[string]int
	lastSpeaker  string
	lastAdvisory string
	autoFollow   bool
	callCancel   context.CancelFunc

	commandHistory []string
	historyCursor  int

	lastDealPath string
}

const (
	defaultWidth  = 100
	defaultHeight = 32
	logBufferMax  = 4000
	scrollStep    = 5
)

type sessionStartedMsg struct {
	session *orchestrator.Session
	err     error
}

type replyMsg struct {
	session *orchestrator.Session
	reply   orchestrator.Reply
	err     error
}

type listingExtractedMsg struct {
	listing listing.Listing
	err     error
}

type dealConfirmedMsg struct {
	session *orchestrator.Session
	deal    orchestrator.Deal
	path    string
	err     error
}

func newModel(ctx context.Context, cfg Config) model {
	cfg = normalizeConfig(cfg)

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Make an offer, e.g. \"₹3200 for 50 quintal\", or /help"
	ti.Focus()
	ti.CharLimit = 1024 * 32
	ti.Width = defaultWidth - 4

	vp := viewport.New(defaultWidth-4, defaultHeight-12)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))

	m := model{
		ctx:           ctx,
		engine:        cfg.Engine,
		store:         cfg.Store,
		loadListing:   cfg.LoadListing,
		personas:      cfg.Personas,
		now:           cfg.Now,
		listing:       cfg.Listing,
		role:          cfg.Role,
		locale:        cfg.Locale,
		input:         ti,
		logViewport:   vp,
		spin:          sp,
		logs:          []string{"Mandi Desk ready."},
		width:         defaultWidth,
		height:        defaultHeight,
		autoFollow:    true,
		speakerTurns:  make(map[string]int),
		historyCursor: 0,
	}
	m.resizeLayout()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.startSessionCmd(), m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeLayout()
		return m, nil

	case spinner.TickMsg:
		return m, m.updateSpinner(typed)

	case tea.KeyMsg:
		if cmd, handled := m.handleKeyMessage(typed); handled {
			return m, cmd
		}

	case sessionStartedMsg:
		m.applySessionStarted(typed)
		return m, nil

	case replyMsg:
		m.applyReply(typed)
		return m, nil

	case listingExtractedMsg:
		return m, m.applyListingExtracted(typed)

	case dealConfirmedMsg:
		m.applyDealConfirmed(typed)
		return m, nil
	}

	return m, m.updateInteractiveInputs(msg)
}

func (m *model) updateSpinner(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	if m.running {
		return cmd
	}
	return nil
}

func (m *model) handleKeyMessage(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.cancelCall()
		return tea.Quit, true
	case tea.KeyCtrlF:
		m.autoFollow = !m.autoFollow
		if m.autoFollow {
			m.logViewport.GotoBottom()
		}
		m.appendLog(fmt.Sprintf("auto-follow: %s", onOff(m.autoFollow)))
		return nil, true
	case tea.KeyCtrlL:
		m.logs = nil
		m.refreshLogViewport()
		return nil, true
	case tea.KeyCtrlP:
		m.input.SetValue(m.historyPrev())
		m.input.CursorEnd()
		return nil, true
	case tea.KeyCtrlN:
		m.input.SetValue(m.historyNext())
		m.input.CursorEnd()
		return nil, true
	case tea.KeyPgUp:
		m.autoFollow = false
		m.logViewport.LineUp(scrollStep)
		return nil, true
	case tea.KeyPgDown:
		m.autoFollow = false
		m.logViewport.LineDown(scrollStep)
		return nil, true
	case tea.KeyHome:
		m.autoFollow = false
		m.logViewport.GotoTop()
		return nil, true
	case tea.KeyEnd:
		m.autoFollow = true
		m.logViewport.GotoBottom()
		return nil, true
	case tea.KeyEnter:
		cmdLine := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if cmdLine == "" {
			return nil, true
		}
		m.pushHistory(cmdLine)
		return m.handleCommand(cmdLine), true
	default:
		return nil, false
	}
}

func (m *model) cancelCall() {
	if m.callCancel != nil {
		m.callCancel()
		m.callCancel = nil
	}
}

func (m *model) applySessionStarted(msg sessionStartedMsg) {
	m.running = false
	if msg.err != nil {
		m.appendLog(fmt.Sprintf("start failed: %v", msg.err))
		return
	}
	s := msg.session
	m.session = s
	m.listing = s.Listing
	m.personas = s.Personas
	m.speakerTurns = make(map[string]int)
	m.lastSpeaker = ""
	m.lastAdvisory = ""

	counterpart := s.Counterpart()
	m.appendLogs(
		"==== negotiation start ====",
		"listing: "+describeListing(s.Listing),
		fmt.Sprintf("you are the %s; negotiating with %s (%s)", s.HumanRole, persona.DisplayName(counterpart), counterpart.Role),
	)
	for _, turn := range s.Turns {
		m.recordTurn(turn)
	}
}

func (m *model) applyReply(msg replyMsg) {
	m.running = false
	m.callCancel = nil
	if errors.Is(msg.err, orchestrator.ErrFinalized) {
		m.appendLog(locale.Message(locale.KeyDealClosed, m.locale) + " Use /reset to start again.")
		return
	}
	if msg.err != nil {
		m.appendLog(fmt.Sprintf("message failed: %v", msg.err))
		return
	}

	m.session = msg.session
	m.session.Locale = m.locale
	// The human turn is the one just before the reply.
	if n := len(m.session.Turns); n >= 2 {
		m.recordTurn(m.session.Turns[n-2])
	}
	m.recordTurn(msg.reply.Turn)
	m.lastAdvisory = msg.reply.Advisory
	if msg.reply.Advisory != "" {
		m.appendLog("! " + msg.reply.Advisory)
	}
	if msg.reply.Stage == orchestrator.StageConfirming {
		m.appendLogs(
			fmt.Sprintf("%s: %s", locale.Message(locale.KeyConfirmTerms, m.locale), describeOffer(m.session)),
			"/confirm to close the deal, /edit to keep negotiating",
		)
	}
}

func (m *model) applyListingExtracted(msg listingExtractedMsg) tea.Cmd {
	m.running = false
	if msg.err != nil {
		m.appendLog(listingErrorText(msg.err, m.locale))
		return nil
	}
	m.listing = msg.listing
	return m.startSessionCmd()
}

func (m *model) applyDealConfirmed(msg dealConfirmedMsg) {
	m.running = false
	m.callCancel = nil
	if msg.err != nil {
		m.appendLog(fmt.Sprintf("confirm failed: %v", msg.err))
		return
	}
	m.session = msg.session
	m.recordTurn(m.session.Turns[len(m.session.Turns)-1])
	deal := msg.deal
	m.appendLog(fmt.Sprintf("deal %s: %s %s %s at ₹%s = ₹%s",
		deal.ID, render.FormatNumber(deal.FinalQuantity), deal.Unit, deal.ProduceName,
		render.FormatNumber(deal.FinalPrice), render.FormatNumber(deal.TotalAmount)))
	if msg.path == "" {
		return
	}
	m.lastDealPath = msg.path
	m.appendLog("saved deal: " + msg.path)
}

func (m *model) recordTurn(turn orchestrator.Turn) {
	if turn.Type != orchestrator.TurnTypeSystem {
		m.speakerTurns[turn.SpeakerID]++
		m.lastSpeaker = turn.SpeakerName
	}
	m.appendTurnLog(turn)
}

func (m *model) updateInteractiveInputs(msg tea.Msg) tea.Cmd {
	mouseWheelUp, mouseWheelDown := isMouseWheelScroll(msg)
	var viewportCmd tea.Cmd
	var inputCmd tea.Cmd
	m.logViewport, viewportCmd = m.logViewport.Update(msg)
	m.input, inputCmd = m.input.Update(msg)
	if mouseWheelUp {
		m.autoFollow = false
	}
	if mouseWheelDown && m.logViewport.AtBottom() {
		m.autoFollow = true
	}
	return tea.Batch(viewportCmd, inputCmd)
}

func isMouseWheelScroll(msg tea.Msg) (up bool, down bool) {
	mm, ok := msg.(tea.MouseMsg)
	if !ok || mm.Action != tea.MouseActionPress {
		return false, false
	}
	switch mm.Button { //nolint:exhaustive
	case tea.MouseButtonWheelUp:
		return true, false
	case tea.MouseButtonWheelDown:
		return false, true
	default:
		return false, false
	}
}
