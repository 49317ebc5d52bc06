package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldFinalize(t *testing.T) {
	yes := []string{
		"done",
		"Deal!",
		"ok done",
		"what's the price? ok done",
		"let's do it",
		"Go ahead",
		"sounds good",
		"yep",
		"perfect",
		"Please finalize",
		"I agree to the terms",
		"sauda pakka",
		"theek hai",
		"हाँ",
		"ठीक है भाई",
		"ঠিক আছে",
		"சரி",
		"ہاں",
		"ok, done",
		"No problem, deal done",
		"I can't wait, let's do it",
	}
	for _, msg := range yes {
		assert.True(t, ShouldFinalize(msg), msg)
	}

	no := []string{
		"",
		"what is the price?",
		"50 kg",
		"hello",
		"I need onion",
		"can you reduce a little",
		"यहां कितना है",
		"I cannot accept this price",
		"No, I don't agree with your offer",
		"we will never accept that deal",
		"not perfect, too costly",
		"I won’t agree to these terms",
		"ठीक नहीं है",
		"पक्का नहीं",
	}
	for _, msg := range no {
		assert.False(t, ShouldFinalize(msg), msg)
	}
}

func TestSafePrice(t *testing.T) {
	tests := []struct {
		name     string
		proposed float64
		listing  float64
		quantity float64
		want     float64
	}{
		{name: "far below listing", proposed: 10, listing: 3500, quantity: 50, want: 3500},
		{name: "total for whole lot", proposed: 175000, listing: 3500, quantity: 50, want: 3500},
		{name: "total within tolerance", proposed: 160000, listing: 3500, quantity: 50, want: 3200},
		{name: "ordinary counter", proposed: 3000, listing: 3500, quantity: 50, want: 3000},
		{name: "at low ratio boundary", proposed: 100, listing: 1000, quantity: 1, want: 100},
		{name: "no listing", proposed: 500, listing: 0, quantity: 10, want: 500},
		{name: "absent", proposed: 0, listing: 3500, quantity: 50, want: 0},
		{name: "single unit is never a total", proposed: 3600, listing: 3500, quantity: 1, want: 3600},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SafePrice(tc.proposed, tc.listing, tc.quantity, DefaultTotalTolerance, DefaultLowPriceRatio)
			assert.Equal(t, tc.want, got)
		})
	}
}
