package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"mandi/internal/locale"
	"mandi/internal/persona"
)

// transitions lists the stages reachable from each stage. No transition
// skips a stage.
var transitions = map[Stage][]Stage{
	StageChat:       {StageConfirming},
	StageConfirming: {StageChat, StageFinalized},
}

func (s *Session) transition(to Stage) error {
	if s.Stage == StageFinalized {
		return ErrFinalized
	}
	for _, next := range transitions[s.Stage] {
		if next == to {
			s.Stage = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Stage, to)
}

// Edit reopens the terms of a session awaiting confirmation.
func (o *Orchestrator) Edit(s *Session) error {
	if err := s.transition(StageChat); err != nil {
		return err
	}
	s.Turns = append(s.Turns, o.systemTurn(s, locale.Message(locale.KeyBackToChat, s.Locale)))
	s.UpdatedAt = o.now()
	return nil
}

// Confirm finalizes a session awaiting confirmation and returns the deal
// built from the running offer.
func (o *Orchestrator) Confirm(s *Session) (Deal, error) {
	if s.Stage == StageFinalized {
		return Deal{}, ErrFinalized
	}
	if s.Offer.Price <= 0 || s.Offer.Quantity <= 0 {
		return Deal{}, fmt.Errorf("%w: offer has no price or quantity", ErrInvalidTransition)
	}
	if err := s.transition(StageFinalized); err != nil {
		return Deal{}, err
	}

	seller, _ := persona.ForRole(s.Personas, persona.RoleSeller)
	buyer, _ := persona.ForRole(s.Personas, persona.RoleBuyer)
	sellerID := seller.ID
	if s.Listing.SellerID != "" {
		sellerID = s.Listing.SellerID
	}

	deal := Deal{
		ID:            NewDealID(),
		SessionID:     s.ID,
		ListingID:     s.Listing.ID,
		SellerID:      sellerID,
		BuyerID:       buyer.ID,
		ProduceName:   s.Listing.ProduceName,
		Unit:          s.Listing.Unit,
		FinalPrice:    s.Offer.Price,
		FinalQuantity: s.Offer.Quantity,
		TotalAmount:   s.Offer.Total(),
		Status:        DealStatusCompleted,
		Timestamp:     o.now(),
	}
	s.Deal = &deal
	s.Turns = append(s.Turns, o.systemTurn(s, locale.Message(locale.KeyDealConfirmed, s.Locale)))
	s.UpdatedAt = deal.Timestamp
	return deal, nil
}

// Recorder persists a finalized session and reports where the deal went.
type Recorder interface {
	Save(ctx context.Context, s *Session) (string, error)
}

// ConfirmAndSave confirms s and records the deal with rec. When the save
// fails, s is returned to confirming so the confirmation can be retried.
// A nil rec only confirms.
func (o *Orchestrator) ConfirmAndSave(ctx context.Context, s *Session, rec Recorder) (Deal, string, error) {
	turns, updated := len(s.Turns), s.UpdatedAt
	deal, err := o.Confirm(s)
	if err != nil || rec == nil {
		return deal, "", err
	}
	path, err := rec.Save(ctx, s)
	if err != nil {
		s.Stage = StageConfirming
		s.Deal = nil
		s.Turns = s.Turns[:turns]
		s.UpdatedAt = updated
		o.logger.Warn("deal save failed; session back to confirming", "session", s.ID, "deal", deal.ID, "err", err)
		return Deal{}, "", fmt.Errorf("save deal %s: %w", deal.ID, err)
	}
	return deal, path, nil
}

// NewDealID returns an identifier of the form DEAL-XXXXXX.
func NewDealID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "DEAL-" + strings.ToUpper(raw[:6])
}

func (o *Orchestrator) systemTurn(s *Session, content string) Turn {
	return Turn{
		Index:       nextTurnIndex(s.Turns),
		SpeakerID:   SystemSpeakerID,
		SpeakerName: SystemSpeakerName,
		Type:        TurnTypeSystem,
		Source:      SourceSystem,
		Content:     content,
		Timestamp:   o.now(),
	}
}

func nextTurnIndex(turns []Turn) int {
	if len(turns) == 0 {
		return 1
	}
	last := turns[len(turns)-1].Index
	if last > 0 {
		return last + 1
	}

	// Fallback for malformed historical data with non-positive tail indices.
	maxIdx := 0
	for _, t := range turns {
		if t.Index > maxIdx {
			maxIdx = t.Index
		}
	}
	return maxIdx + 1
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
