package openai

import (
	"fmt"
	"strings"

	"mandi/internal/locale"
	"mandi/internal/orchestrator"
	"mandi/internal/persona"
	"mandi/internal/render"
)

const negotiationLogLimit = 16

func buildNegotiateSystemPrompt(input orchestrator.NegotiateInput) string {
	lang := locale.Lookup(input.Locale)
	var b strings.Builder
	b.WriteString("You are one side of a produce negotiation in an Indian agricultural market (mandi).\n")
	b.WriteString("Rules:\n")
	b.WriteString(fmt.Sprintf("- Reply in %s (%s), in the script a local trader would use.\n", lang.Name, lang.NativeName))
	b.WriteString("- Stay in character as the persona described by the user message.\n")
	b.WriteString("- Keep the reply short: one to three sentences, like a spoken reply at the market.\n")
	b.WriteString("- Quote prices in rupees per listing unit with the ₹ sign.\n")
	switch input.Speaker.Role {
	case persona.RoleSeller:
		b.WriteString("- You are the seller. Never accept or propose less than 85% of the listed price.\n")
	case persona.RoleBuyer:
		b.WriteString("- You are the buyer. Never accept or propose more than 115% of the listed price.\n")
	}
	b.WriteString("- Set status to \"agreed\" only when both sides have accepted the same price and quantity.\n")
	b.WriteString("- Set status to \"rejected\" only when you are walking away from the deal.\n")
	b.WriteString(`Return exactly one JSON object with keys:
- text (string, the spoken reply)
- status (one of "negotiating", "agreed", "rejected")
- proposedPrice (number per unit, 0 when you propose no price)
- proposedQuantity (number in listing units, 0 when unchanged)
No markdown, no extra keys.`)
	return b.String()
}

func buildNegotiateUserPrompt(input orchestrator.NegotiateInput) string {
	var b strings.Builder
	l := input.Listing
	b.WriteString("Listing:\n")
	b.WriteString(fmt.Sprintf("- produce: %s\n", l.ProduceName))
	b.WriteString(fmt.Sprintf("- quantity: %s %s\n", render.FormatNumber(l.Quantity), l.Unit))
	b.WriteString(fmt.Sprintf("- listed price: ₹%s per %s\n", render.FormatNumber(l.PricePerUnit), l.Unit))
	if l.MarketPrice > 0 {
		b.WriteString(fmt.Sprintf("- mandi benchmark: ₹%s per %s\n", render.FormatNumber(l.MarketPrice), l.Unit))
	}
	if l.Quality != "" {
		b.WriteString("- quality: " + l.Quality + "\n")
	}
	if l.Location != "" {
		b.WriteString("- location: " + l.Location + "\n")
	}

	b.WriteString("\nYou are:\n")
	b.WriteString(personaPromptLine(input.Speaker) + "\n")
	if input.Speaker.Style != "" {
		b.WriteString("- style: " + input.Speaker.Style + "\n")
	}
	b.WriteString(fmt.Sprintf("\nYou are talking to the %s.\n", input.HumanRole))

	b.WriteString("\nCurrent offer on the table:\n")
	b.WriteString(fmt.Sprintf("- price: ₹%s per %s\n", render.FormatNumber(input.Offer.Price), l.Unit))
	b.WriteString(fmt.Sprintf("- quantity: %s %s\n", render.FormatNumber(input.Offer.Quantity), l.Unit))

	b.WriteString("\nConversation so far:\n")
	if len(input.Turns) == 0 {
		b.WriteString("- No previous turns.\n")
	} else {
		for _, t := range trimTurns(input.Turns, negotiationLogLimit) {
			b.WriteString(fmt.Sprintf("[%d][%s] %s\n", t.Index, t.SpeakerName, t.Content))
		}
	}

	b.WriteString("\nLatest message from the " + string(input.HumanRole) + ":\n")
	b.WriteString(input.Message)
	b.WriteString("\n\nNow provide your reply.")
	return b.String()
}

func buildModerateSystemPrompt() string {
	return strings.TrimSpace(`You screen messages in a farmer-to-buyer produce marketplace.
Flag a message when it is abusive or threatening, asks to move payment off the platform,
asks for advance payment to an unknown account, shares bank or OTP details, or claims
an implausible price to lure the other side.
Prices far from the mandi benchmark alone are not a reason to flag.
Return exactly one JSON object with keys:
- flagged (boolean)
- reason (string, empty when not flagged)
- advisory (string, one short caution for the user in the language of the message, empty when not flagged)
No markdown, no extra keys.`)
}

func buildModerateUserPrompt(input orchestrator.ModerateInput) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Listing: %s, ₹%s per %s\n",
		input.Listing.ProduceName, render.FormatNumber(input.Listing.PricePerUnit), input.Listing.Unit))
	b.WriteString(fmt.Sprintf("Current offer: ₹%s for %s %s\n",
		render.FormatNumber(input.Offer.Price), render.FormatNumber(input.Offer.Quantity), input.Listing.Unit))
	b.WriteString(fmt.Sprintf("Language: %s\n", locale.Lookup(input.Locale).Name))
	b.WriteString("\nMessage:\n")
	b.WriteString(input.Message)
	return b.String()
}

func buildListingSystemPrompt() string {
	return strings.TrimSpace(`You read produce listings written by farmers, in any Indian language or English.
Extract the produce, the quantity with its unit, and the asking price per unit.
Translate the produce name to English (for example "प्याज" is "Onion").
unit must be one of "kg", "Quintal", "Ton" or "bags".
Use 0 for quantity or pricePerUnit when the text does not state it.
Return exactly one JSON object with keys:
- produceName (string)
- quantity (number)
- unit (string)
- pricePerUnit (number)
- description (string, a one-line English summary)
No markdown, no extra keys.`)
}

func buildListingUserPrompt(text string, code locale.Code) string {
	return fmt.Sprintf("Language hint: %s\n\nListing text:\n%s", locale.Lookup(code).Name, strings.TrimSpace(text))
}

func personaPromptLine(p persona.Persona) string {
	line := fmt.Sprintf("- %s (%s): %s", persona.DisplayName(p), p.ID, p.Role)
	if strings.TrimSpace(p.Location) != "" {
		line += " from " + strings.TrimSpace(p.Location)
	}
	return line
}

func trimTurns(turns []orchestrator.Turn, limit int) []orchestrator.Turn {
	if len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}
