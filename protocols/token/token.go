package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/openclaw/claw-dex-client-go/pkg/contract"
)

// ABI returns the parsed ERC-20 ABI.
func ABI() abi.ABI {
	return erc20ABI
}

// Token is a read/write binding to a deployed ERC-20 contract.
type Token struct {
	bound contract.Bound
}

// New binds an ERC-20 token at address.
func New(address common.Address) *Token {
	return &Token{bound: contract.Bound{Address: address, ABI: erc20ABI}}
}

func (t *Token) Address() common.Address {
	return t.bound.Address
}

// BalanceOf returns the base-unit balance of owner.
func (t *Token) BalanceOf(ctx context.Context, caller contract.Caller, owner common.Address) (*big.Int, error) {
	out, err := t.bound.Call(ctx, caller, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (t *Token) Name(ctx context.Context, caller contract.Caller) (string, error) {
	out, err := t.bound.Call(ctx, caller, "name")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (t *Token) Symbol(ctx context.Context, caller contract.Caller) (string, error) {
	out, err := t.bound.Call(ctx, caller, "symbol")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (t *Token) Decimals(ctx context.Context, caller contract.Caller) (uint8, error) {
	out, err := t.bound.Call(ctx, caller, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// Metadata reads name, symbol and decimals in one go.
func (t *Token) Metadata(ctx context.Context, caller contract.Caller) (Metadata, error) {
	name, err := t.Name(ctx, caller)
	if err != nil {
		return Metadata{}, err
	}
	symbol, err := t.Symbol(ctx, caller)
	if err != nil {
		return Metadata{}, err
	}
	decimals, err := t.Decimals(ctx, caller)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Address: t.Address(), Name: name, Symbol: symbol, Decimals: decimals}, nil
}

// Approve authorizes spender to move amount base units on behalf of opts.From.
func (t *Token) Approve(ctx context.Context, backend contract.Transactor, opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("approve: invalid amount %v", amount)
	}
	return t.bound.Transact(ctx, backend, opts, "approve", spender, amount)
}
