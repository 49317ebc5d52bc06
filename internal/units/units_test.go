package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	assert.Equal(t, 0.5, Convert(50, "kg", "Quintal"))
	assert.Equal(t, 10.0, Convert(1, "Ton", "Quintal"))
	assert.Equal(t, 2000.0, Convert(2, "ton", "kg"))
	assert.Equal(t, 0.25, Convert(25, "quintal", "ton"))
	assert.Equal(t, 300.0, Convert(3, "Quintal", "kilos"))
}

func TestConvertIdentity(t *testing.T) {
	for _, u := range []string{"kg", "Quintal", "Ton", "bags", ""} {
		assert.Equal(t, 42.0, Convert(42, u, u), "unit %q", u)
	}
}

func TestConvertUnknownUnitIsUnchanged(t *testing.T) {
	assert.Equal(t, 7.0, Convert(7, "bags", "kg"))
	assert.Equal(t, 7.0, Convert(7, "kg", "crate"))
}

func TestCanonical(t *testing.T) {
	tests := map[string]Unit{
		"KG":       KG,
		"Kilos":    KG,
		"kilogram": KG,
		"किलो":     KG,
		"quintals": Quintal,
		"क्विंटल":  Quintal,
		"TONS":     Ton,
		"டன்":      Ton,
	}
	for word, want := range tests {
		got, ok := Canonical(word)
		require.True(t, ok, word)
		assert.Equal(t, want, got, word)
	}

	_, ok := Canonical("units")
	assert.False(t, ok)
}

func TestTotal(t *testing.T) {
	assert.Equal(t, 1750.0, Total(50, "kg", 3500, "Quintal"))
}

func TestWordsLongestFirst(t *testing.T) {
	words := Words()
	require.NotEmpty(t, words)
	for i := 1; i < len(words); i++ {
		assert.GreaterOrEqual(t, len(words[i-1]), len(words[i]))
	}
}
