// Package contracttest provides an in-memory contract backend for tests.
package contracttest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call records one eth_call served by the Backend.
type Call struct {
	To     common.Address
	Method string
	Args   []any
}

type responder struct {
	method *abi.Method
	output func(args []any) ([]any, error)
}

// Backend answers contract calls from registered responders and records every
// call and sent transaction.
type Backend struct {
	mu         sync.Mutex
	responders map[common.Address]map[[4]byte]responder
	calls      []Call
	sent       []*types.Transaction

	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	SendErr  error
	CallErr  error
}

func NewBackend() *Backend {
	return &Backend{
		responders: make(map[common.Address]map[[4]byte]responder),
		GasPrice:   big.NewInt(1_000_000_000),
		Gas:        50_000,
	}
}

// Respond makes calls of method on address return the given values.
func (b *Backend) Respond(address common.Address, contractABI abi.ABI, method string, values ...any) {
	b.RespondFunc(address, contractABI, method, func([]any) ([]any, error) { return values, nil })
}

// RespondFunc makes calls of method on address return fn's values for the
// decoded call arguments.
func (b *Backend) RespondFunc(address common.Address, contractABI abi.ABI, method string, fn func(args []any) ([]any, error)) {
	m, ok := contractABI.Methods[method]
	if !ok {
		panic(fmt.Sprintf("contracttest: unknown method %s", method))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.responders[address] == nil {
		b.responders[address] = make(map[[4]byte]responder)
	}
	var id [4]byte
	copy(id[:], m.ID)
	b.responders[address][id] = responder{method: &m, output: fn}
}

func (b *Backend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if b.CallErr != nil {
		return nil, b.CallErr
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("contracttest: malformed call")
	}

	var id [4]byte
	copy(id[:], msg.Data[:4])

	b.mu.Lock()
	r, ok := b.responders[*msg.To][id]
	b.mu.Unlock()
	if !ok {
		// an address without code answers with empty output
		return nil, nil
	}

	args, err := r.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.calls = append(b.calls, Call{To: *msg.To, Method: r.method.Name, Args: args})
	b.mu.Unlock()

	values, err := r.output(args)
	if err != nil {
		return nil, err
	}
	return r.method.Outputs.Pack(values...)
}

func (b *Backend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.Nonce, nil
}

func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.GasPrice), nil
}

func (b *Backend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.Gas, nil
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if b.SendErr != nil {
		return b.SendErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	b.Nonce++
	return nil
}

// Calls returns the contract calls served so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsTo returns the served calls of method.
func (b *Backend) CallsTo(method string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Sent returns the transactions broadcast so far.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Transaction, len(b.sent))
	copy(out, b.sent)
	return out
}

// ChainIDReader serves a fixed chain ID, or Err when set.
type ChainIDReader struct {
	ID  *big.Int
	Err error
}

func (c ChainIDReader) ChainID(context.Context) (*big.Int, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.ID, nil
}
