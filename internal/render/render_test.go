package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"mandi/internal/extract"
	"mandi/internal/units"
)

func TestRenderEstimatedTotalAcrossUnits(t *testing.T) {
	ctx := Context{ListingPrice: 3500, Unit: "Quintal"}
	slots := extract.FromMessage("50 kg")

	got := Render("For {mentionedQuantity} {mentionedUnit}, I can do ₹{estimatedTotal} at ₹{listingPrice} per {unit}.", ctx, slots)
	assert.Equal(t, "For 50 kg, I can do ₹1750 at ₹3500 per Quintal.", got)
	assert.NotContains(t, got, "{estimatedTotal}")
}

func TestRenderTotalFallsBackToListingPrice(t *testing.T) {
	ctx := Context{ListingPrice: 2200, Quantity: 100, Unit: "Quintal"}
	got := Render("Deal: {quantity} {unit} at ₹{agreedPrice}. Total ₹{totalAmount}.", ctx, extract.Slots{})
	assert.Equal(t, "Deal: 100 Quintal at ₹2200. Total ₹220000.", got)
}

func TestRenderTotalUsesAgreedPrice(t *testing.T) {
	ctx := Context{ListingPrice: 2200, AgreedPrice: 2100, Quantity: 10}
	assert.Equal(t, "₹21000", Render("₹{totalAmount}", ctx, extract.Slots{}))
}

func TestRenderBlanksMissingSlots(t *testing.T) {
	got := Render("₹{price}? That fits my budget. I need {quantity} {unit}.", Context{}, extract.Slots{})
	assert.Equal(t, "? That fits my budget. I need.", got)
	assert.NotContains(t, got, "{")
	assert.NotContains(t, got, "₹")
}

func TestRenderNeverPrintsZero(t *testing.T) {
	got := Render("Total: ₹{estimatedTotal} ({mentionedQuantity} {mentionedUnit})", Context{}, extract.Slots{Quantity: 0})
	assert.Equal(t, "Total:", got)
}

func TestRenderUnknownSlotIsBlanked(t *testing.T) {
	assert.Equal(t, "Hello!", Render("Hello {nickname}!", Context{}, extract.Slots{}))
	assert.Equal(t, "Total ₹21000.", Render("Total ₹{totalAmount}{total_amount}.", Context{AgreedPrice: 2100, Quantity: 10}, extract.Slots{}))
}

func TestRenderDropsPerWithoutUnit(t *testing.T) {
	ctx := Context{AgreedPrice: 2200, Quantity: 100}
	assert.Equal(t, "Okay, ₹2200 it is.", Render("Okay, ₹{agreedPrice} per {unit} it is.", ctx, extract.Slots{}))
	assert.Equal(t, "ठीक है, ₹2200 तय।", Render("ठीक है, ₹{agreedPrice} प्रति {unit} तय।", ctx, extract.Slots{}))

	ctx.Unit = "Quintal"
	assert.Equal(t, "Okay, ₹2200 per Quintal it is.", Render("Okay, ₹{agreedPrice} per {unit} it is.", ctx, extract.Slots{}))
}

func TestRenderTinyQuantityIsAbsent(t *testing.T) {
	ctx := Context{ListingPrice: 3500, Unit: "Quintal"}
	got := Render("You want {mentionedQuantity} {mentionedUnit}?", ctx, extract.Slots{Quantity: 0.001})
	assert.Equal(t, "You want Quintal?", got)
	assert.NotContains(t, got, "0")

	values := Values(Context{}, extract.Slots{Quantity: 0.004, Price: 0.001})
	assert.NotContains(t, values, SlotMentionedQuantity)
	assert.NotContains(t, values, SlotPrice)
}

func TestRenderCounterPrice(t *testing.T) {
	got := Render("Can you do ₹{counterPrice}?", Context{ListingPrice: 3500}, extract.Slots{})
	assert.Equal(t, "Can you do ₹3150?", got)

	got = Render("Can you do ₹{counterPrice}?", Context{}, extract.Slots{Price: 3000})
	assert.Equal(t, "Can you do ₹2700?", got)
}

func TestRenderMentionedUnitFallsBackToListingUnit(t *testing.T) {
	ctx := Context{ListingPrice: 100, Unit: "kg", MentionedQuantity: 20}
	assert.Equal(t, "20 kg = ₹2000", Render("{mentionedQuantity} {mentionedUnit} = ₹{estimatedTotal}", ctx, extract.Slots{}))
}

func TestRenderTonToQuintal(t *testing.T) {
	ctx := Context{ListingPrice: 2000, Unit: "Quintal"}
	slots := extract.Slots{Quantity: 2, Unit: units.Ton}
	assert.Equal(t, "₹40000", Render("₹{estimatedTotal}", ctx, slots))
}

func TestValues(t *testing.T) {
	values := Values(Context{ListingPrice: 3500, ProduceName: " Onion "}, extract.Slots{Price: 3200})
	assert.Equal(t, "3500", values[SlotListingPrice])
	assert.Equal(t, "3200", values[SlotPrice])
	assert.Equal(t, "Onion", values[SlotProduceName])
	assert.Equal(t, "3500", values[SlotTotalAmount])
	_, ok := values[SlotMarketPrice]
	assert.False(t, ok)
}

func TestPlaceholdersAndKnownSlot(t *testing.T) {
	assert.Equal(t, []string{"price", "unit"}, Placeholders("₹{price} per {unit}"))
	assert.Equal(t, []string{"total_amount", " price "}, Placeholders("{total_amount} and { price }"))
	assert.True(t, KnownSlot(SlotEstimatedTotal))
	assert.False(t, KnownSlot("nickname"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1750", FormatNumber(1750))
	assert.Equal(t, "0.5", FormatNumber(0.5))
	assert.Equal(t, "35.25", FormatNumber(35.25))
	assert.Equal(t, "2.33", FormatNumber(7.0/3.0))
}

func TestTidy(t *testing.T) {
	assert.Equal(t, "Price: (3500)", tidy("Price:  ₹ (3500)"))
	assert.Equal(t, "Rate ₹ 3500 ok", tidy("Rate ₹ 3500 ok"))
	assert.False(t, strings.Contains(tidy("₹() end ₹"), "₹"))
}
