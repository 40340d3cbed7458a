package token

import (
	"github.com/ethereum/go-ethereum/common"
)

// Symbol is the display ticker a token is configured under.
type Symbol string

// TokenView is a token as configured for the pair.
type TokenView struct {
	Symbol  Symbol         `json:"symbol"`
	Address common.Address `json:"address"`
}

// Metadata is what a token reports about itself on chain.
type Metadata struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Registry provides indexed access to the configured tokens, preserving
// configuration order.
type Registry struct {
	bySymbol  map[Symbol]TokenView
	byAddress map[common.Address]TokenView
	all       []TokenView
}

// NewRegistry indexes tokens by symbol and address.
func NewRegistry(tokens []TokenView) *Registry {
	bySymbol := make(map[Symbol]TokenView, len(tokens))
	byAddress := make(map[common.Address]TokenView, len(tokens))

	for _, t := range tokens {
		bySymbol[t.Symbol] = t
		byAddress[t.Address] = t
	}

	return &Registry{
		bySymbol:  bySymbol,
		byAddress: byAddress,
		all:       tokens,
	}
}

// GetBySymbol retrieves a token by its configured symbol.
func (r *Registry) GetBySymbol(symbol Symbol) (TokenView, bool) {
	t, ok := r.bySymbol[symbol]
	return t, ok
}

// GetByAddress retrieves a token by its contract address.
func (r *Registry) GetByAddress(address common.Address) (TokenView, bool) {
	t, ok := r.byAddress[address]
	return t, ok
}

// All returns a defensive copy of the configured tokens.
func (r *Registry) All() []TokenView {
	allCopy := make([]TokenView, len(r.all))
	copy(allCopy, r.all)
	return allCopy
}

// Symbols returns the configured symbols in order.
func (r *Registry) Symbols() []Symbol {
	out := make([]Symbol, len(r.all))
	for i, t := range r.all {
		out[i] = t.Symbol
	}
	return out
}
