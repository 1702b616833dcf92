// Package symbols canonicalizes broker-specific instrument symbols.
//
// Brokers decorate the same instrument in many ways ("EURUSD+",
// "EURUSD.a", "XAUUSD_m", "GBPJPYmicro"); every module in the pipeline
// compares instruments through Normalize so that two symbols refer to
// the same instrument iff their normalized forms are equal.
package symbols

import (
	"regexp"
	"strings"
)

var (
	trailingPunct = regexp.MustCompile(`[+.]+$`)
	brokerSuffix  = regexp.MustCompile(`(?i)(_m|-m|micro|mini)$`)
	feedSuffix    = regexp.MustCompile(`(?i)\.[abc]$`)
)

// Normalize returns the canonical uppercase form of a broker symbol.
// Rules, applied in order until a fixpoint: strip trailing '+'/'.'
// runs, strip a trailing _m/-m/micro/mini broker suffix, strip a
// trailing .a/.b/.c feed suffix, uppercase. Iterating to a fixpoint
// makes Normalize idempotent for arbitrary input.
func Normalize(symbol string) string {
	s := strings.TrimSpace(symbol)

	for {
		prev := s
		s = trailingPunct.ReplaceAllString(s, "")
		s = brokerSuffix.ReplaceAllString(s, "")
		s = feedSuffix.ReplaceAllString(s, "")
		if s == prev {
			break
		}
	}

	return strings.ToUpper(s)
}

// PatternKey is the narrower canonical form used by the pattern miner
// when bucketing trades by instrument: everything from the first
// '.'/'#'/'_' on is dropped, a trailing "micro" is removed, and the
// result is uppercased. Distinct from Normalize on purpose - the miner
// groups instrument families, not exact feed variants.
func PatternKey(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	if idx := strings.IndexAny(s, ".#_"); idx > 0 {
		s = s[:idx]
	}
	s = strings.TrimSuffix(s, "MICRO")

	return s
}
