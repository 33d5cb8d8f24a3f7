// Package symbol normalizes instrument identifiers to the venue form
// ("BTCUSDT") regardless of how upstream spells them ("BTC/USDT",
// "BTC/USDT:USDT", lowercase).
package symbol

import "strings"

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Venue() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

var quoteCurrencies = []string{"USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB"}

// Parse splits an identifier into base and quote. Settlement suffixes
// ("BTC/USDT:USDT") are dropped.
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// Normalize returns the venue form, or the uppercased input when the
// identifier does not parse.
func Normalize(s string) string {
	if v := Parse(s).Venue(); v != "" {
		return v
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeList normalizes and deduplicates, preserving order.
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

func IsValid(s string) bool {
	sym := Parse(s)
	return sym.Base != "" && sym.Quote != ""
}
