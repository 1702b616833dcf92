package risk

import (
	"strings"
)

// PipTable resolves pip size and per-lot pip value for an instrument.
// The default implementation is a heuristic family lookup, not exact
// broker contract specs; deployments with exact tables can inject
// their own implementation without touching the calculator logic.
type PipTable interface {
	// PipSize returns the price increment of one pip for the symbol.
	// The symbol must already be normalized.
	PipSize(symbol string) float64

	// PipValue returns the approximate USD value of one pip for the
	// given lot size. The symbol must already be normalized.
	PipValue(symbol string, lots float64) float64
}

// DefaultPipTable is the built-in heuristic table keyed by
// normalized-symbol substring match.
type DefaultPipTable struct{}

// family groups the substrings identifying one instrument family with
// its pip size and per-lot pip value. Order matters: first match wins.
type family struct {
	substrings []string
	pipSize    float64
	pipValue   float64 // per 1.0 lot
}

var families = []family{
	{[]string{"JPY"}, 0.01, 7.5},
	{[]string{"XAU", "GOLD"}, 0.1, 10},
	{[]string{"XAG", "SILVER"}, 0.01, 50},
	{[]string{"SPX", "US500", "SP500"}, 0.01, 0.50},
	{[]string{"NAS", "US100", "NDX"}, 0.01, 0.20},
	{[]string{"US30", "DOW", "DJ30"}, 1.0, 0.10},
	{[]string{"DAX", "DE40", "GER40"}, 0.1, 0.10},
	{[]string{"FTSE", "UK100"}, 0.1, 10},
	{[]string{"OIL", "WTI", "BRENT"}, 0.01, 10},
	{[]string{"BTC"}, 1.0, 1.0},
	{[]string{"ETH"}, 0.01, 1.0},
}

// forex default when no family matches
const (
	defaultPipSize  = 0.0001
	defaultPipValue = 10.0
)

func lookup(symbol string) *family {
	upper := strings.ToUpper(symbol)
	for i := range families {
		for _, sub := range families[i].substrings {
			if strings.Contains(upper, sub) {
				return &families[i]
			}
		}
	}
	return nil
}

// PipSize returns the pip size for the symbol's instrument family
func (DefaultPipTable) PipSize(symbol string) float64 {
	if f := lookup(symbol); f != nil {
		return f.pipSize
	}
	return defaultPipSize
}

// PipValue returns the approximate USD pip value for the lot size
func (DefaultPipTable) PipValue(symbol string, lots float64) float64 {
	if f := lookup(symbol); f != nil {
		return f.pipValue * lots
	}
	return defaultPipValue * lots
}
