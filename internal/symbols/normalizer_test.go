package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain symbol", "EURUSD", "EURUSD"},
		{"lowercase", "eurusd", "EURUSD"},
		{"trailing plus", "EURUSD+", "EURUSD"},
		{"trailing dot run", "EURUSD..", "EURUSD"},
		{"feed suffix", "EURUSD.a", "EURUSD"},
		{"feed suffix uppercase", "EURUSD.B", "EURUSD"},
		{"broker suffix underscore", "XAUUSD_m", "XAUUSD"},
		{"broker suffix dash", "XAUUSD-m", "XAUUSD"},
		{"micro suffix", "GBPJPYmicro", "GBPJPY"},
		{"mini suffix", "US30mini", "US30"},
		{"stacked decorations", "EURUSD.a+", "EURUSD"},
		{"whitespace", "  EURUSD  ", "EURUSD"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.input))
		})
	}
}

// Normalizing an already-normalized symbol must be a no-op, whatever
// the input was.
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"EURUSD", "EURUSD+", "EURUSD.a", "XAUUSD_m", "GBPJPYmicro",
		"eurusd.a+", "US500.c..", "BTCUSD-m",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

// Two decorated forms of the same instrument must collapse to the same
// canonical symbol.
func TestNormalize_EquivalentForms(t *testing.T) {
	assert.Equal(t, Normalize("EURUSD+"), Normalize("eurusd.a"))
	assert.Equal(t, Normalize("XAUUSD_m"), Normalize("XAUUSD"))
}

func TestPatternKey(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"EURUSD", "EURUSD"},
		{"EURUSD.a", "EURUSD"},
		{"XAU_USD", "XAU"},
		{"US500#cash", "US500"},
		{"gbpjpymicro", "GBPJPY"},
		{".hidden", ".HIDDEN"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, PatternKey(tc.input), "input %q", tc.input)
	}
}
