// Package market defines the closed instrument catalog. Every instrument is
// quoted against USDT and carries a stable hex code used only on the wire.
// The catalog is fixed at compile time; instruments are never created or
// removed at runtime.
package market

import (
	"errors"
	"fmt"
)

// Symbol identifies one instrument in the catalog.
type Symbol string

// ErrUnknownSymbol marks lookups outside the fixed catalog.
var ErrUnknownSymbol = errors.New("market: unknown symbol")

// Quote is the quote currency for every instrument.
const Quote Symbol = "USDT"

// QuoteCode is the wire code of the quote currency.
const QuoteCode = "0x0000"

var catalog = []struct {
	symbol Symbol
	code   string
}{
	{"USDT", "0x0000"},
	{"A", "0x0001"},
	{"AAVE", "0x0002"},
	{"ADA", "0x0003"},
	{"ANIME", "0x0004"},
	{"APE", "0x0005"},
	{"APT", "0x0006"},
	{"ARB", "0x0007"},
	{"AVAX", "0x0008"},
	{"BNB", "0x0009"},
	{"BTC", "0x000A"},
	{"CAKE", "0x000B"},
	{"COMP", "0x000C"},
	{"CRV", "0x000D"},
	{"DEGO", "0x000E"},
	{"DEXE", "0x000F"},
	{"DOGE", "0x0010"},
	{"DOT", "0x0011"},
	{"DYDX", "0x0012"},
	{"EIGEN", "0x0013"},
	{"ENA", "0x0014"},
	{"ETH", "0x0015"},
	{"ETHFI", "0x0016"},
	{"FDUSD", "0x0017"},
	{"FLOKI", "0x0018"},
	{"HBAR", "0x0019"},
	{"HUMA", "0x001A"},
	{"ICP", "0x001B"},
	{"INIT", "0x001C"},
	{"LINK", "0x001D"},
	{"LPT", "0x001E"},
	{"LTC", "0x001F"},
	{"MASK", "0x0020"},
	{"MKR", "0x0021"},
	{"NEAR", "0x0022"},
	{"NEIRO", "0x0023"},
	{"NXPC", "0x0024"},
	{"ONDO", "0x0025"},
	{"ORDI", "0x0026"},
	{"PAXG", "0x0027"},
	{"PENDLE", "0x0028"},
	{"PENGU", "0x0029"},
	{"PEPE", "0x002A"},
	{"PNUT", "0x002B"},
	{"RENDER", "0x002C"},
	{"S", "0x002D"},
	{"SOL", "0x002E"},
	{"SOPH", "0x002F"},
	{"SUI", "0x0030"},
	{"SYRUP", "0x0031"},
	{"TAO", "0x0032"},
	{"TON", "0x0033"},
	{"TRB", "0x0034"},
	{"TRUMP", "0x0035"},
	{"TRX", "0x0036"},
	{"UNI", "0x0037"},
	{"USDC", "0x0038"},
	{"VANA", "0x0039"},
	{"VIRTUAL", "0x003A"},
	{"WBTC", "0x003B"},
	{"WCT", "0x003C"},
	{"WIF", "0x003D"},
	{"WLD", "0x003E"},
}

var (
	codeBySymbol = make(map[Symbol]string, len(catalog))
	symbolByCode = make(map[string]Symbol, len(catalog))
	all          = make([]Symbol, 0, len(catalog))
)

func init() {
	for _, e := range catalog {
		codeBySymbol[e.symbol] = e.code
		symbolByCode[e.code] = e.symbol
		all = append(all, e.symbol)
	}
}

// All returns every symbol in catalog order.
func All() []Symbol {
	out := make([]Symbol, len(all))
	copy(out, all)
	return out
}

// IsValid reports whether s is part of the catalog.
func IsValid(s Symbol) bool {
	_, ok := codeBySymbol[s]
	return ok
}

// Code returns the wire code of the symbol. Symbols outside the catalog
// return an empty string.
func (s Symbol) Code() string {
	return codeBySymbol[s]
}

func (s Symbol) String() string { return string(s) }

// FromCode resolves a wire code back to its symbol.
func FromCode(code string) (Symbol, error) {
	if s, ok := symbolByCode[code]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: code %q", ErrUnknownSymbol, code)
}

// FromName resolves a symbol name (e.g. "BTC").
func FromName(name string) (Symbol, error) {
	s := Symbol(name)
	if _, ok := codeBySymbol[s]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
}
