package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListing(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ListingDraft
	}{
		{
			name: "english",
			text: "50 quintal rice for 3000 rupees",
			want: ListingDraft{ProduceName: "Rice", Quantity: 50, Unit: "Quintal", PricePerUnit: 3000},
		},
		{
			name: "hindi",
			text: "3000 रुपये में 50 क्विंटल चावल",
			want: ListingDraft{ProduceName: "Rice", Quantity: 50, Unit: "Quintal", PricePerUnit: 3000},
		},
		{
			name: "bengali digits",
			text: "৩০০০ টাকায় ৫০ কুইন্টাল চাল",
			want: ListingDraft{ProduceName: "Rice", Quantity: 50, Unit: "Quintal", PricePerUnit: 3000},
		},
		{
			name: "kg and for",
			text: "selling 200 kg onion for 25",
			want: ListingDraft{ProduceName: "Onion", Quantity: 200, Unit: "kg", PricePerUnit: 25},
		},
		{
			name: "bags",
			text: "20 bags potato ₹900 per bag",
			want: ListingDraft{ProduceName: "Potato", Quantity: 20, Unit: Bags, PricePerUnit: 900},
		},
		{
			name: "unknown produce",
			text: "10 ton stuff at 1500",
			want: ListingDraft{ProduceName: "Agricultural Produce", Quantity: 10, Unit: "Ton", PricePerUnit: 1500},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Listing(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want.ProduceName, got.ProduceName)
			assert.Equal(t, tc.want.Quantity, got.Quantity)
			assert.Equal(t, tc.want.Unit, got.Unit)
			assert.Equal(t, tc.want.PricePerUnit, got.PricePerUnit)
			assert.NotEmpty(t, got.Description)
		})
	}
}

func TestListingDescription(t *testing.T) {
	got, err := Listing("50 quintal rice for 3000 rupees")
	require.NoError(t, err)
	assert.Equal(t, "50 Quintal of Rice at ₹3000 per Quintal", got.Description)
}

func TestListingIncomplete(t *testing.T) {
	for _, text := range []string{
		"",
		"rice",
		"50 quintal rice",
		"rice 3000 50",
		"wheat for sale at a good price",
	} {
		_, err := Listing(text)
		assert.True(t, errors.Is(err, ErrIncompleteListing), "text %q", text)
	}
}
