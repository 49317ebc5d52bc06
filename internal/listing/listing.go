package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"

	"mandi/internal/extract"
	"mandi/internal/render"
	"mandi/internal/units"
)

const DefaultProduceName = "Agricultural Produce"

// Listing is a seller's offer of one lot of produce.
type Listing struct {
	ID           string  `json:"id"`
	SellerID     string  `json:"sellerId,omitempty"`
	SellerName   string  `json:"sellerName,omitempty"`
	ProduceName  string  `json:"produceName"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"pricePerUnit"`
	MarketPrice  float64 `json:"marketPrice,omitempty"`
	Quality      string  `json:"quality,omitempty"`
	Location     string  `json:"location,omitempty"`
	Description  string  `json:"description,omitempty"`
}

func LoadFromFile(path string) (Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Listing{}, fmt.Errorf("read listing file: %w", err)
	}

	var l Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return Listing{}, fmt.Errorf("parse listing json: %w", err)
	}
	return NormalizeAndValidate(l)
}

// NormalizeAndValidate trims fields, canonicalises the unit and assigns an
// ID when the listing has none.
func NormalizeAndValidate(l Listing) (Listing, error) {
	l.ID = strings.TrimSpace(l.ID)
	l.SellerID = strings.TrimSpace(l.SellerID)
	l.SellerName = strings.TrimSpace(l.SellerName)
	l.ProduceName = strings.TrimSpace(l.ProduceName)
	l.Unit = strings.TrimSpace(l.Unit)
	l.Quality = strings.TrimSpace(l.Quality)
	l.Location = strings.TrimSpace(l.Location)
	l.Description = strings.TrimSpace(l.Description)

	if l.Quantity <= 0 {
		return Listing{}, errors.New("listing.quantity must be positive")
	}
	if l.PricePerUnit <= 0 {
		return Listing{}, errors.New("listing.pricePerUnit must be positive")
	}
	if l.MarketPrice < 0 {
		return Listing{}, errors.New("listing.marketPrice must not be negative")
	}

	if l.ProduceName == "" {
		l.ProduceName = DefaultProduceName
	}
	switch {
	case l.Unit == "":
		l.Unit = string(units.Quintal)
	case strings.EqualFold(l.Unit, extract.Bags):
		l.Unit = extract.Bags
	default:
		u, ok := units.Canonical(l.Unit)
		if !ok {
			return Listing{}, fmt.Errorf("listing.unit %q is not a known unit", l.Unit)
		}
		l.Unit = string(u)
	}
	if l.ID == "" {
		l.ID = NewID()
	}
	return l, nil
}

// FromDraft turns an extracted description into a listing.
func FromDraft(d extract.ListingDraft) (Listing, error) {
	return NormalizeAndValidate(Listing{
		ProduceName:  d.ProduceName,
		Quantity:     d.Quantity,
		Unit:         d.Unit,
		PricePerUnit: d.PricePerUnit,
		Description:  d.Description,
	})
}

// Sample is the listing used when none is given.
func Sample() Listing {
	return Listing{
		ID:           "LST-SAMPLE",
		SellerID:     "farmer",
		SellerName:   "Ramesh Patel",
		ProduceName:  "Onion",
		Quantity:     50,
		Unit:         string(units.Quintal),
		PricePerUnit: 3500,
		Quality:      "high",
		Location:     "Nashik",
		Description:  "50 Quintal of Onion at ₹3500 per Quintal",
	}
}

func NewID() string {
	return "LST-" + ulid.Make().String()
}

// Context seeds a conversation context from the listing.
func (l Listing) Context() render.Context {
	return render.Context{
		ListingPrice: l.PricePerUnit,
		MarketPrice:  l.MarketPrice,
		Quantity:     l.Quantity,
		Unit:         l.Unit,
		ProduceName:  l.ProduceName,
	}
}

// Total is the value of the full lot at the listing price.
func (l Listing) Total() float64 {
	return l.Quantity * l.PricePerUnit
}
