// Package fallback answers negotiation messages without a hosted model. It
// matches a message against the counterpart persona's catalog, fills the
// chosen template from the conversation context and reports any price or
// quantity the message proposed.
package fallback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"mandi/internal/catalog"
	"mandi/internal/extract"
	"mandi/internal/locale"
	"mandi/internal/numeral"
	"mandi/internal/persona"
	"mandi/internal/render"
)

// lastResort is used only when a rendered template comes out empty.
const lastResort = "I understand. Please tell me more."

type Config struct {
	// Seed fixes the selector. Zero seeds from the clock.
	Seed int64
	// LowPriceRatio is the fraction of the listing price below which a
	// proposed price is replaced by the listing price.
	LowPriceRatio float64
	// TotalTolerance is how close to listingPrice*quantity a proposal must be
	// to be read as a total rather than a per-unit price.
	TotalTolerance float64
	Logger         *slog.Logger
}

type Engine struct {
	catalogs *catalog.Set
	cfg      Config
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Response is the engine's answer to one message. Zero proposed values are
// absent.
type Response struct {
	Text             string       `json:"text"`
	ProposedPrice    float64      `json:"proposedPrice,omitempty"`
	ProposedQuantity float64      `json:"proposedQuantity,omitempty"`
	Finalize         bool         `json:"finalize"`
	Agreed           bool         `json:"agreed"`
	Intent           string       `json:"intent,omitempty"`
	Responder        persona.Role `json:"responder"`
}

func New(set *catalog.Set, cfg Config) (*Engine, error) {
	if set == nil {
		return nil, errors.New("catalog set is required")
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.LowPriceRatio == 0 {
		cfg.LowPriceRatio = DefaultLowPriceRatio
	}
	if cfg.LowPriceRatio < 0 || cfg.LowPriceRatio >= 1 {
		return nil, fmt.Errorf("low price ratio must be in (0,1), got %v", cfg.LowPriceRatio)
	}
	if cfg.TotalTolerance == 0 {
		cfg.TotalTolerance = DefaultTotalTolerance
	}
	if cfg.TotalTolerance < MinTotalTolerance || cfg.TotalTolerance > MaxTotalTolerance {
		return nil, fmt.Errorf("total tolerance must be in [%.2f,%.2f], got %v", MinTotalTolerance, MaxTotalTolerance, cfg.TotalTolerance)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		catalogs: set,
		cfg:      cfg,
		logger:   logger,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Config returns the normalized configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SafePrice applies the engine's safety checks to a proposed price.
func (e *Engine) SafePrice(proposed, listing, quantity float64) float64 {
	return SafePrice(proposed, listing, quantity, e.cfg.TotalTolerance, e.cfg.LowPriceRatio)
}

// ClassifyAndRespond answers msg on behalf of the counterpart of role, the
// side the human is playing. Unsupported locales answer in English.
func (e *Engine) ClassifyAndRespond(msg string, code locale.Code, role persona.Role, ctx render.Context) Response {
	responder := role.Counterpart()
	if !locale.IsSupported(code) {
		code = locale.English
	}

	text := numeral.Normalize(msg)
	slots := extract.FromMessage(text)
	if slots.HasQuantity() {
		ctx.MentionedQuantity = slots.Quantity
		if slots.HasUnit() {
			ctx.MentionedUnit = string(slots.Unit)
		}
	}

	sel := e.Match(text, code, responder)
	reply := render.Render(sel.Template, ctx, slots)
	if strings.TrimSpace(reply) == "" {
		e.logger.Debug("template rendered empty", "intent", sel.Intent, "locale", code)
		reply = lastResort
	}

	quantity := slots.Quantity
	if quantity <= 0 {
		quantity = ctx.Quantity
	}
	resp := Response{
		Text:             reply,
		ProposedPrice:    e.SafePrice(slots.Price, ctx.ListingPrice, quantity),
		ProposedQuantity: slots.Quantity,
		Finalize:         ShouldFinalize(msg) || sel.Agreed,
		Agreed:           sel.Agreed,
		Intent:           sel.Intent,
		Responder:        responder,
	}
	e.logger.Debug("fallback reply",
		"responder", responder,
		"intent", sel.Intent,
		"matched", sel.Matched,
		"finalize", resp.Finalize,
	)
	return resp
}
