package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes one currency the engine can move on chain.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int32
}

// Registry maps currency symbols to token contracts for one network. It is
// built once at startup from the network id and injected into every
// component that needs it, so there is a single source of truth for token
// addresses.
type Registry struct {
	networkID int
	bySymbol  map[string]Token
	native    string
}

// Network ids the engine ships token tables for.
const (
	CeloMainnetID   = 42220
	CeloAlfajoresID = 44787
)

// NativeSymbol is the gas asset on both supported networks.
const NativeSymbol = "CELO"

var mainnetTokens = []Token{
	{Symbol: "CELO", Address: common.HexToAddress("0x471EcE3750Da237f93B8E339c536989b8978a438"), Decimals: 18},
	{Symbol: "cUSD", Address: common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a"), Decimals: 18},
	{Symbol: "cEUR", Address: common.HexToAddress("0xD8763CBa276a3738E6DE85b4b3bF5FDed6D6cA73"), Decimals: 18},
	{Symbol: "cREAL", Address: common.HexToAddress("0xe8537a3d056DA446677B9E9d6c5dB704EaAb4787"), Decimals: 18},
	{Symbol: "USDC", Address: common.HexToAddress("0xcebA9300f2b948710d2653dD7B07f33A8B32118C"), Decimals: 6},
}

var alfajoresTokens = []Token{
	{Symbol: "CELO", Address: common.HexToAddress("0xF194afDf50B03e69Bd7D057c1Aa9e10c9954E4C9"), Decimals: 18},
	{Symbol: "cUSD", Address: common.HexToAddress("0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"), Decimals: 18},
	{Symbol: "cEUR", Address: common.HexToAddress("0x10c892A6EC43a53E45D0B916B4b7D383B1b78C0F"), Decimals: 18},
	{Symbol: "cREAL", Address: common.HexToAddress("0xE4D517785D091D3c54818832dB6094bcc2744545"), Decimals: 18},
	{Symbol: "USDC", Address: common.HexToAddress("0x2F25deB3848C207fc8E0c34035B3Ba7fC157602B"), Decimals: 6},
}

// NewRegistry builds the token registry for a network id.
func NewRegistry(networkID int) (*Registry, error) {
	var tokens []Token
	switch networkID {
	case CeloMainnetID:
		tokens = mainnetTokens
	case CeloAlfajoresID:
		tokens = alfajoresTokens
	default:
		return nil, fmt.Errorf("no token table for network %d", networkID)
	}

	bySymbol := make(map[string]Token, len(tokens))
	for _, t := range tokens {
		bySymbol[t.Symbol] = t
	}

	return &Registry{
		networkID: networkID,
		bySymbol:  bySymbol,
		native:    NativeSymbol,
	}, nil
}

// NetworkID returns the network the registry was built for.
func (r *Registry) NetworkID() int {
	return r.networkID
}

// Native returns the symbol of the network's gas asset.
func (r *Registry) Native() string {
	return r.native
}

// Lookup returns the token for a currency symbol.
func (r *Registry) Lookup(symbol string) (Token, bool) {
	t, ok := r.bySymbol[symbol]
	return t, ok
}

// Symbols returns all known currency symbols.
func (r *Registry) Symbols() []string {
	symbols := make([]string, 0, len(r.bySymbol))
	for s := range r.bySymbol {
		symbols = append(symbols, s)
	}
	return symbols
}

// SymbolByAddress resolves a token contract address back to its symbol.
// Returns an empty string if the address is not in the table.
func (r *Registry) SymbolByAddress(addr common.Address) string {
	hex := strings.ToLower(addr.Hex())
	for symbol, t := range r.bySymbol {
		if strings.ToLower(t.Address.Hex()) == hex {
			return symbol
		}
	}
	return ""
}
