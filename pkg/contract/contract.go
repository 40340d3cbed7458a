package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Caller executes read-only contract calls. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Transactor is the subset of a node client needed to build and broadcast a
// legacy transaction.
type Transactor interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Backend combines read and write access to one network.
type Backend interface {
	Caller
	Transactor
}

var ErrNoCode = errors.New("no contract code at address")

// MustParseABI parses a JSON ABI definition, panicking on malformed input.
// Only used with package-level ABI constants.
func MustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// Bound ties a parsed ABI to a deployed address.
type Bound struct {
	Address common.Address
	ABI     abi.ABI
}

// Call packs method with args, executes it at the latest block and unpacks
// the return values.
func (b Bound) Call(ctx context.Context, caller Caller, method string, args ...any) ([]any, error) {
	input, err := b.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	to := b.Address
	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", method, b.Address.Hex(), err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("%s call to %s: %w", method, b.Address.Hex(), ErrNoCode)
	}

	values, err := b.ABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// Transact packs method with args and sends it as a signed transaction from
// opts.From. Nonce, gas price and gas limit are filled from the backend unless
// set on opts.
func (b Bound) Transact(ctx context.Context, backend Transactor, opts *bind.TransactOpts, method string, args ...any) (*types.Transaction, error) {
	if opts == nil || opts.Signer == nil {
		return nil, errors.New("transact: signer is required")
	}
	input, err := b.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}

	var nonce uint64
	if opts.Nonce != nil {
		nonce = opts.Nonce.Uint64()
	} else {
		nonce, err = backend.PendingNonceAt(ctx, opts.From)
		if err != nil {
			return nil, fmt.Errorf("failed to read nonce for %s: %w", opts.From.Hex(), err)
		}
	}

	gasPrice := opts.GasPrice
	if gasPrice == nil {
		gasPrice, err = backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	to := b.Address
	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit, err = backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     opts.From,
			To:       &to,
			GasPrice: gasPrice,
			Value:    value,
			Data:     input,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas for %s: %w", method, err)
		}
	}

	rawTx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     input,
	})

	signedTx, err := opts.Signer(opts.From, rawTx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", method, err)
	}
	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}
	return signedTx, nil
}
