package uniswapv2

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/openclaw/claw-dex-client-go/pkg/contract"
)

// ABI returns the parsed pair ABI.
func ABI() abi.ABI {
	return pairABI
}

// PoolView is a snapshot of a pair's reserves.
type PoolView struct {
	Address            common.Address `json:"address"`
	Reserve0           *big.Int       `json:"reserve0"`
	Reserve1           *big.Int       `json:"reserve1"`
	BlockTimestampLast uint32         `json:"blockTimestampLast"`
}

// Pair is a read-only binding to a deployed Uniswap V2 style pair.
type Pair struct {
	bound contract.Bound
}

func New(address common.Address) *Pair {
	return &Pair{bound: contract.Bound{Address: address, ABI: pairABI}}
}

func (p *Pair) Address() common.Address {
	return p.bound.Address
}

// Reserves reads both reserves with a single getReserves call.
func (p *Pair) Reserves(ctx context.Context, caller contract.Caller) (PoolView, error) {
	out, err := p.bound.Call(ctx, caller, "getReserves")
	if err != nil {
		return PoolView{}, err
	}
	return PoolView{
		Address:            p.bound.Address,
		Reserve0:           abi.ConvertType(out[0], new(big.Int)).(*big.Int),
		Reserve1:           abi.ConvertType(out[1], new(big.Int)).(*big.Int),
		BlockTimestampLast: *abi.ConvertType(out[2], new(uint32)).(*uint32),
	}, nil
}

// Tokens returns token0 and token1 of the pair.
func (p *Pair) Tokens(ctx context.Context, caller contract.Caller) (common.Address, common.Address, error) {
	out, err := p.bound.Call(ctx, caller, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token0 := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)

	out, err = p.bound.Call(ctx, caller, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	token1 := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return token0, token1, nil
}
