package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"mandi/internal/commandutil"
	"mandi/internal/extract"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/render"
	"mandi/internal/store"
	"mandi/internal/turnfmt"
)

// Engine is the part of *orchestrator.Orchestrator the REPL drives.
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
	Writer      io.Writer
}

type App struct {
	engine      Engine
	store       store.Store
	loadListing ListingLoaderFunc
	personas    []persona.Persona
	writer      io.Writer

	listing listing.Listing
	role    persona.Role
	locale  locale.Code
	session *orchestrator.Session

	lastDealPath string
}

const maxREPLInputBytes = 1024 * 1024

func NewApp(cfg Config) *App {
	if cfg.LoadListing == nil {
		cfg.LoadListing = listing.LoadFromFile
	}
	if cfg.Writer == nil {
		cfg.Writer = io.Discard
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
	return &App{
		engine:      cfg.Engine,
		store:       cfg.Store,
		loadListing: cfg.LoadListing,
		personas:    cfg.Personas,
		writer:      cfg.Writer,
		listing:     cfg.Listing,
		role:        cfg.Role,
		locale:      locale.Resolve(string(cfg.Locale)),
	}
}

func (a *App) Start(ctx context.Context, in io.Reader) error {
	if a.engine == nil {
		return errors.New("engine is required")
	}
	if in == nil {
		return errors.New("input reader is required")
	}

	a.printLine("Mandi negotiation REPL")
	a.printLine("Type a message to negotiate, or /help for commands.")
	if err := a.restart(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxREPLInputBytes)
	for {
		if _, err := fmt.Fprint(a.writer, a.prompt()); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			a.printLine("")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit := a.handleLine(ctx, line)
		if quit {
			return nil
		}
	}
}

func (a *App) prompt() string {
	stage := orchestrator.StageChat
	if a.session != nil {
		stage = a.session.Stage
	}
	return fmt.Sprintf("%s@%s[%s]> ", a.role, a.locale, stage)
}

func (a *App) handleLine(ctx context.Context, line string) bool {
	if !commandutil.IsCommand(line) {
		a.sendMessage(ctx, line)
		return false
	}

	command, arg := commandutil.Parse(line, commandutil.Aliases)
	switch command {
	case commandutil.CmdExit:
		a.printLine("bye")
		return true
	case commandutil.CmdHelp:
		a.printHelp()
	case commandutil.CmdListing:
		if arg == "" {
			a.printLine("usage: /listing <description>")
			return false
		}
		a.extractListing(ctx, arg)
	case commandutil.CmdLoad:
		if arg == "" {
			a.printLine("usage: /load <listing.json>")
			return false
		}
		l, err := a.loadListing(arg)
		if err != nil {
			a.printLine(fmt.Sprintf("load failed: %v", err))
			return false
		}
		a.listing = l
		a.restartOrReport(ctx)
	case commandutil.CmdRole:
		role, err := persona.ParseRole(arg)
		if err != nil {
			a.printLine("usage: /role <seller|buyer>")
			return false
		}
		a.role = role
		a.restartOrReport(ctx)
	case commandutil.CmdLang:
		if arg == "" {
			a.printLanguages()
			return false
		}
		a.locale = locale.Resolve(arg)
		if a.session != nil {
			a.session.Locale = a.locale
		}
		a.printLine(fmt.Sprintf("language: %s (%s)", locale.Lookup(a.locale).Name, a.locale))
	case commandutil.CmdShow:
		a.show()
	case commandutil.CmdConfirm:
		a.confirm(ctx)
	case commandutil.CmdEdit:
		if err := a.engine.Edit(a.session); err != nil {
			a.printLine(fmt.Sprintf("edit failed: %v", err))
			return false
		}
		a.printTurn(a.session.Turns[len(a.session.Turns)-1])
	case commandutil.CmdReset:
		a.restartOrReport(ctx)
	default:
		a.printLine("unknown command. Use /help to list commands.")
	}
	return false
}

func (a *App) restart(ctx context.Context) error {
	s, err := a.engine.Start(ctx, orchestrator.StartInput{
		Listing:   a.listing,
		Personas:  a.personas,
		HumanRole: a.role,
		Locale:    a.locale,
	})
	if err != nil {
		return fmt.Errorf("start negotiation: %w", err)
	}
	a.session = s
	a.listing = s.Listing
	counterpart := s.Counterpart()
	a.printLine(fmt.Sprintf("listing: %s", describeListing(s.Listing)))
	a.printLine(fmt.Sprintf("you are the %s; negotiating with %s (%s)", a.role, persona.DisplayName(counterpart), counterpart.Role))
	for _, turn := range s.Turns {
		a.printTurn(turn)
	}
	return nil
}

func (a *App) restartOrReport(ctx context.Context) {
	if err := a.restart(ctx); err != nil {
		a.printLine(err.Error())
	}
}

func (a *App) sendMessage(ctx context.Context, message string) {
	reply, err := a.engine.Handle(ctx, a.session, message)
	if errors.Is(err, orchestrator.ErrFinalized) {
		a.printLine(locale.Message(locale.KeyDealClosed, a.locale) + " Use /reset to start again.")
		return
	}
	if err != nil {
		a.printLine(fmt.Sprintf("message failed: %v", err))
		return
	}

	a.printTurn(reply.Turn)
	if reply.Advisory != "" {
		a.printLine("! " + reply.Advisory)
	}
	if reply.Stage == orchestrator.StageConfirming {
		a.printLine(fmt.Sprintf("%s: %s", locale.Message(locale.KeyConfirmTerms, a.locale), describeOffer(a.session)))
		a.printLine("/confirm to close the deal, /edit to keep negotiating")
	}
}

func (a *App) extractListing(ctx context.Context, text string) {
	l, err := a.engine.ExtractListing(ctx, text, a.locale)
	if errors.Is(err, extract.ErrIncompleteListing) {
		a.printLine(locale.Message(locale.KeyExtractionHelp, a.locale))
		return
	}
	if err != nil {
		a.printLine(fmt.Sprintf("listing failed: %v", err))
		return
	}
	a.listing = l
	a.restartOrReport(ctx)
}

func (a *App) confirm(ctx context.Context) {
	deal, where, err := a.engine.ConfirmAndSave(ctx, a.session, a.store)
	if err != nil {
		a.printLine(fmt.Sprintf("confirm failed: %v", err))
		return
	}
	a.printTurn(a.session.Turns[len(a.session.Turns)-1])
	a.printLine(fmt.Sprintf("deal %s: %s %s %s at ₹%s = ₹%s",
		deal.ID, render.FormatNumber(deal.FinalQuantity), deal.Unit, deal.ProduceName,
		render.FormatNumber(deal.FinalPrice), render.FormatNumber(deal.TotalAmount)))
	if where == "" {
		return
	}
	a.lastDealPath = where
	a.printLine("saved deal: " + where)
}

func (a *App) show() {
	if a.session == nil {
		a.printLine("no negotiation running")
		return
	}
	s := a.session
	a.printLine("listing: " + describeListing(s.Listing))
	if s.Context.MarketPrice > 0 {
		a.printLine(fmt.Sprintf("mandi benchmark: ₹%s per %s", render.FormatNumber(s.Context.MarketPrice), s.Listing.Unit))
	}
	a.printLine("offer: " + describeOffer(s))
	a.printLine(fmt.Sprintf("stage: %s | role: %s | language: %s", s.Stage, s.HumanRole, s.Locale))
	a.printLine(fmt.Sprintf("turns: %d (ai %d, fallback %d)", len(s.Turns), s.Metrics.AITurns, s.Metrics.FallbackTurns))
	if s.Deal != nil {
		a.printLine("deal: " + s.Deal.ID)
	}
	if a.lastDealPath != "" {
		a.printLine("last saved deal: " + a.lastDealPath)
	}
}

func (a *App) printLanguages() {
	codes := make([]string, 0, len(locale.Supported()))
	for _, lang := range locale.Supported() {
		codes = append(codes, string(lang.Code))
	}
	a.printLine("usage: /lang <code>; supported: " + strings.Join(codes, ", "))
}

func (a *App) printTurn(turn orchestrator.Turn) {
	for _, line := range formatTurnLines(turn) {
		a.printLine(line)
	}
}

func (a *App) printLine(msg string) {
	_, _ = fmt.Fprintln(a.writer, msg)
}

func formatTurnLines(turn orchestrator.Turn) []string {
	return turnfmt.FormatLines(turn, turnfmt.Options{})
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

func (a *App) printHelp() {
	a.printLine("commands:")
	for _, line := range commandutil.HelpLines() {
		a.printLine("  " + line)
	}
}
