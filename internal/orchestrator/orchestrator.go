package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"mandi/internal/extract"
	"mandi/internal/fallback"
	"mandi/internal/listing"
	"mandi/internal/locale"
	"mandi/internal/market"
	"mandi/internal/persona"
	"mandi/internal/render"
	"mandi/internal/units"
)

// Stage is the deal lifecycle state of a session.
type Stage string

const (
	StageChat       Stage = "chat"
	StageConfirming Stage = "confirming"
	StageFinalized  Stage = "finalized"
)

const (
	TurnTypeHuman   = "human"
	TurnTypePersona = "persona"
	TurnTypeSystem  = "system"

	SourceHuman    = "human"
	SourceAI       = "ai"
	SourceFallback = "fallback"
	SourceSystem   = "system"

	AIStatusNegotiating = "negotiating"
	AIStatusAgreed      = "agreed"
	AIStatusRejected    = "rejected"

	DealStatusCompleted = "completed"

	SystemSpeakerID   = "system"
	SystemSpeakerName = "Mandi"
)

const defaultAITimeout = 20 * time.Second

var (
	ErrInvalidTransition = errors.New("invalid stage transition")
	ErrFinalized         = errors.New("session is finalized")
)

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Metrics struct {
	AITurns          int `json:"ai_turns"`
	FallbackTurns    int `json:"fallback_turns"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Turn struct {
	Index       int          `json:"index"`
	SpeakerID   string       `json:"speaker_id"`
	SpeakerName string       `json:"speaker_name"`
	Role        persona.Role `json:"role,omitempty"`
	Type        string       `json:"type"`
	Source      string       `json:"source"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Offer is the running price and quantity, in listing units.
type Offer struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

func (o Offer) Total() float64 {
	return roundMoney(o.Price * o.Quantity)
}

type Deal struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	ListingID     string    `json:"listingId"`
	SellerID      string    `json:"sellerId"`
	BuyerID       string    `json:"buyerId"`
	ProduceName   string    `json:"produceName"`
	Unit          string    `json:"unit"`
	FinalPrice    float64   `json:"finalPrice"`
	FinalQuantity float64   `json:"finalQuantity"`
	TotalAmount   float64   `json:"totalAmount"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

// Session is one negotiation over one listing. A session is not safe for
// concurrent use; callers serialise access per session.
type Session struct {
	ID        string            `json:"id"`
	Listing   listing.Listing   `json:"listing"`
	Personas  []persona.Persona `json:"personas"`
	HumanRole persona.Role      `json:"humanRole"`
	Locale    locale.Code       `json:"locale"`
	Stage     Stage             `json:"stage"`
	Offer     Offer             `json:"offer"`
	Context   render.Context    `json:"context"`
	Turns     []Turn            `json:"turns"`
	Deal      *Deal             `json:"deal,omitempty"`
	Metrics   Metrics           `json:"metrics"`
	StartedAt time.Time         `json:"startedAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Counterpart is the persona answering the human.
func (s *Session) Counterpart() persona.Persona {
	p, _ := persona.ForRole(s.Personas, s.HumanRole.Counterpart())
	return p
}

type Reply struct {
	Turn     Turn   `json:"turn"`
	Stage    Stage  `json:"stage"`
	Offer    Offer  `json:"offer"`
	Finalize bool   `json:"finalize"`
	Source   string `json:"source"`
	Intent   string `json:"intent,omitempty"`
	Advisory string `json:"advisory,omitempty"`
}

type NegotiateInput struct {
	Listing   listing.Listing
	Speaker   persona.Persona
	HumanRole persona.Role
	Locale    locale.Code
	Turns     []Turn
	Offer     Offer
	Message   string
}

type NegotiateOutput struct {
	Text             string
	Status           string
	ProposedPrice    float64
	ProposedQuantity float64
	Usage            Usage
}

// Negotiator is the hosted model answering in character.
type Negotiator interface {
	Negotiate(ctx context.Context, input NegotiateInput) (NegotiateOutput, error)
}

type ModerateInput struct {
	Message string
	Listing listing.Listing
	Offer   Offer
	Locale  locale.Code
}

type ModerateOutput struct {
	Flagged  bool
	Reason   string
	Advisory string
	Usage    Usage
}

// Moderator is optional. When the Negotiator implements it, every human
// message is screened and any advisory is attached to the reply.
type Moderator interface {
	Moderate(ctx context.Context, input ModerateInput) (ModerateOutput, error)
}

// ListingExtractor is optional. When the Negotiator implements it, listing
// descriptions are read by the model before the rule-based extractor.
type ListingExtractor interface {
	ExtractListing(ctx context.Context, text string, code locale.Code) (extract.ListingDraft, error)
}

// PriceBenchmark supplies mandi prices per quintal.
type PriceBenchmark interface {
	Price(ctx context.Context, commodity string) (market.Record, error)
}

type Config struct {
	// AITimeout bounds each hosted model call.
	AITimeout time.Duration
	DisableAI bool
	Market    PriceBenchmark
	Logger    *slog.Logger
	Now       func() time.Time
}

type Orchestrator struct {
	engine *fallback.Engine
	ai     Negotiator
	cfg    Config
	logger *slog.Logger
}

// New wires the rule engine with an optional hosted model. A nil ai runs
// the engine alone.
func New(engine *fallback.Engine, ai Negotiator, cfg Config) (*Orchestrator, error) {
	if engine == nil {
		return nil, errors.New("fallback engine is required")
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = defaultAITimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{engine: engine, ai: ai, cfg: cfg, logger: logger}, nil
}

type StartInput struct {
	Listing   listing.Listing
	Personas  []persona.Persona
	HumanRole persona.Role
	Locale    locale.Code
}

// Start opens a session in the chat stage with the running offer at the
// listing terms.
func (o *Orchestrator) Start(ctx context.Context, input StartInput) (*Session, error) {
	l, err := listing.NormalizeAndValidate(input.Listing)
	if err != nil {
		return nil, fmt.Errorf("invalid listing: %w", err)
	}

	personas := input.Personas
	if len(personas) == 0 {
		personas = persona.Defaults()
	}
	personas, err = persona.NormalizeAndValidate(personas)
	if err != nil {
		return nil, fmt.Errorf("invalid personas: %w", err)
	}

	if !input.HumanRole.Valid() {
		return nil, fmt.Errorf("human role must be seller or buyer, got %q", input.HumanRole)
	}

	code := input.Locale
	if !locale.IsSupported(code) {
		code = locale.Resolve(string(code))
	}

	now := o.now()
	s := &Session{
		ID:        ulid.Make().String(),
		Listing:   l,
		Personas:  personas,
		HumanRole: input.HumanRole,
		Locale:    code,
		Stage:     StageChat,
		Offer:     Offer{Price: l.PricePerUnit, Quantity: l.Quantity},
		Context:   l.Context(),
		StartedAt: now,
		UpdatedAt: now,
	}
	if s.Context.MarketPrice == 0 {
		s.Context.MarketPrice = o.benchmark(ctx, l)
	}

	if greeting := strings.TrimSpace(s.Counterpart().Greeting); greeting != "" {
		s.Turns = append(s.Turns, o.personaTurn(s, greeting, SourceSystem))
	}
	return s, nil
}

// Handle processes one human message and returns the counterpart's reply.
// Messages sent while confirming are answered and leave the stage as is.
func (o *Orchestrator) Handle(ctx context.Context, s *Session, message string) (Reply, error) {
	if s == nil {
		return Reply{}, errors.New("session is required")
	}
	if s.Stage == StageFinalized {
		return Reply{}, ErrFinalized
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, errors.New("message must not be empty")
	}

	s.Turns = append(s.Turns, o.humanTurn(s, message))
	o.applySlots(s, extract.FromMessage(message))

	var (
		text     string
		source   string
		intent   string
		finalize bool
	)
	out, err := o.negotiate(ctx, s, message)
	switch {
	case err == nil:
		addUsage(&s.Metrics, out.Usage)
		s.Metrics.AITurns++
		o.applyProposal(s, out.ProposedPrice, out.ProposedQuantity)
		text = out.Text
		source = SourceAI
		finalize = out.Status == AIStatusAgreed || fallback.ShouldFinalize(message)
	default:
		if !errors.Is(err, errAIUnavailable) {
			o.logger.Warn("hosted negotiation failed, using fallback", "session", s.ID, "err", err)
		}
		resp := o.engine.ClassifyAndRespond(message, s.Locale, s.HumanRole, o.turnContext(s))
		s.Metrics.FallbackTurns++
		text = resp.Text
		source = SourceFallback
		intent = resp.Intent
		finalize = resp.Finalize
	}

	turn := o.personaTurn(s, text, source)
	s.Turns = append(s.Turns, turn)

	if finalize && s.Stage == StageChat {
		if err := s.transition(StageConfirming); err != nil {
			return Reply{}, err
		}
	}
	s.UpdatedAt = o.now()

	return Reply{
		Turn:     turn,
		Stage:    s.Stage,
		Offer:    s.Offer,
		Finalize: finalize,
		Source:   source,
		Intent:   intent,
		Advisory: o.advisory(ctx, s, message),
	}, nil
}

// ExtractListing reads a free-text listing, asking the hosted model first
// when it can and falling back to the rule-based extractor.
func (o *Orchestrator) ExtractListing(ctx context.Context, text string, code locale.Code) (listing.Listing, error) {
	if extractor, ok := o.ai.(ListingExtractor); ok && o.aiEnabled() {
		callCtx, cancel := o.callContext(ctx)
		draft, err := extractor.ExtractListing(callCtx, text, code)
		cancel()
		if err == nil {
			var l listing.Listing
			if l, err = listing.FromDraft(draft); err == nil {
				return l, nil
			}
		}
		o.logger.Warn("hosted listing extraction failed, using fallback", "err", err)
	}

	draft, err := extract.Listing(text)
	if err != nil {
		return listing.Listing{}, err
	}
	return listing.FromDraft(draft)
}

var errAIUnavailable = errors.New("hosted model unavailable")

func (o *Orchestrator) negotiate(ctx context.Context, s *Session, message string) (NegotiateOutput, error) {
	if !o.aiEnabled() {
		return NegotiateOutput{}, errAIUnavailable
	}
	callCtx, cancel := o.callContext(ctx)
	defer cancel()
	out, err := o.ai.Negotiate(callCtx, NegotiateInput{
		Listing:   s.Listing,
		Speaker:   s.Counterpart(),
		HumanRole: s.HumanRole,
		Locale:    s.Locale,
		Turns:     s.Turns,
		Offer:     s.Offer,
		Message:   message,
	})
	if err != nil {
		return NegotiateOutput{}, err
	}
	out.Text = strings.TrimSpace(out.Text)
	if strings.TrimSpace(out.Status) == "" {
		if text, status, ok := parseStatusDirective(out.Text); ok {
			out.Text, out.Status = text, status
		}
	}
	if out.Text == "" {
		return NegotiateOutput{}, errors.New("hosted model returned an empty reply")
	}
	out.Status = normalizeAIStatus(out.Status)
	return out, nil
}

// applySlots folds what the human's message said into the running offer.
// Quantities are converted to listing units; prices pass the safety checks.
func (o *Orchestrator) applySlots(s *Session, slots extract.Slots) {
	if slots.HasQuantity() {
		s.Context.MentionedQuantity = slots.Quantity
		s.Context.MentionedUnit = string(slots.Unit)
	}
	quantity := 0.0
	if slots.HasQuantity() {
		quantity = slots.Quantity
		if slots.HasUnit() {
			quantity = units.Convert(slots.Quantity, string(slots.Unit), s.Listing.Unit)
		}
	}
	o.applyProposal(s, slots.Price, quantity)
}

func (o *Orchestrator) applyProposal(s *Session, price, quantity float64) {
	if quantity > 0 {
		s.Offer.Quantity = quantity
	}
	if safe := o.engine.SafePrice(price, s.Listing.PricePerUnit, s.Offer.Quantity); safe > 0 {
		s.Offer.Price = safe
		s.Context.OfferedPrice = safe
	}
}

// turnContext is the session context with the running offer as the terms
// an agreement would quote.
func (o *Orchestrator) turnContext(s *Session) render.Context {
	ctx := s.Context
	ctx.AgreedPrice = s.Offer.Price
	ctx.Quantity = s.Offer.Quantity
	return ctx
}

func (o *Orchestrator) advisory(ctx context.Context, s *Session, message string) string {
	if moderator, ok := o.ai.(Moderator); ok && o.aiEnabled() {
		callCtx, cancel := o.callContext(ctx)
		out, err := moderator.Moderate(callCtx, ModerateInput{
			Message: message,
			Listing: s.Listing,
			Offer:   s.Offer,
			Locale:  s.Locale,
		})
		cancel()
		if err != nil {
			o.logger.Warn("moderation failed", "session", s.ID, "err", err)
		} else {
			addUsage(&s.Metrics, out.Usage)
			if out.Flagged && strings.TrimSpace(out.Advisory) != "" {
				return strings.TrimSpace(out.Advisory)
			}
		}
	}
	return market.Advise(s.Offer.Price, s.Context.MarketPrice)
}

// benchmark returns the mandi price for the listing's produce expressed per
// listing unit, or 0 when unknown.
func (o *Orchestrator) benchmark(ctx context.Context, l listing.Listing) float64 {
	if o.cfg.Market == nil {
		return 0
	}
	rec, err := o.cfg.Market.Price(ctx, l.ProduceName)
	if err != nil {
		o.logger.Debug("no market benchmark", "produce", l.ProduceName, "err", err)
		return 0
	}
	return roundMoney(rec.ModalPrice * units.Convert(1, l.Unit, string(units.Quintal)))
}

func (o *Orchestrator) humanTurn(s *Session, content string) Turn {
	id, name := "you", "You"
	if p, ok := persona.ForRole(s.Personas, s.HumanRole); ok {
		id, name = p.ID, persona.DisplayName(p)
	}
	return Turn{
		Index:       nextTurnIndex(s.Turns),
		SpeakerID:   id,
		SpeakerName: name,
		Role:        s.HumanRole,
		Type:        TurnTypeHuman,
		Source:      SourceHuman,
		Content:     content,
		Timestamp:   o.now(),
	}
}

func (o *Orchestrator) personaTurn(s *Session, content, source string) Turn {
	p := s.Counterpart()
	return Turn{
		Index:       nextTurnIndex(s.Turns),
		SpeakerID:   p.ID,
		SpeakerName: persona.DisplayName(p),
		Role:        p.Role,
		Type:        TurnTypePersona,
		Source:      source,
		Content:     content,
		Timestamp:   o.now(),
	}
}

func (o *Orchestrator) now() time.Time {
	return o.cfg.Now().UTC()
}

func addUsage(metrics *Metrics, usage Usage) {
	metrics.PromptTokens += usage.PromptTokens
	metrics.CompletionTokens += usage.CompletionTokens
	metrics.TotalTokens += usage.TotalTokens
}
