package symbol

import (
	"strings"
)

type Symbol struct {
	Base  string
	Quote string
}

// Internal canonical form: "BTC/USDT".
func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance exchange form: "BTCUSDT".
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// Parse 接受 "BTC/USDT"、"BTCUSDT"、"btc/usdt:USDT" 等写法。
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}

	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}

	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}

	quoteCurrencies := []string{"USDT", "USDC", "TUSD", "BTC", "ETH", "BNB"}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{
				Base:  s[:len(s)-len(quote)],
				Quote: quote,
			}
		}
	}

	return Symbol{}
}

// Normalize returns the internal "BASE/QUOTE" form, or "" when unparseable.
func Normalize(s string) string {
	return Parse(s).Internal()
}

// ToExchange returns the binance wire form ("BTCUSDT"). Unparseable input
// falls back to uppercased input with separators stripped.
func ToExchange(s string) string {
	if sym := Parse(s); sym.Base != "" {
		return sym.Binance()
	}
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "/", "")
}
