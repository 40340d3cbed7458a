package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tidwall/gjson"
)

const SignTransactionMethod = "eth_signTransaction"

// txArgs mirrors the transaction object accepted by eth_signTransaction.
type txArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
	ChainID  *hexutil.Big    `json:"chainId"`
}

// newRemoteSigner returns transact options whose signing is delegated to the
// wallet through eth_signTransaction. Keys never leave the wallet.
func newRemoteSigner(ctx context.Context, client *rpc.Client, account common.Address, chainID *big.Int) *bind.TransactOpts {
	signer := types.LatestSignerForChainID(chainID)
	return &bind.TransactOpts{
		From:    account,
		Context: ctx,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if from != account {
				return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, from.Hex())
			}
			args := txArgs{
				From:     from,
				To:       tx.To(),
				Gas:      hexutil.Uint64(tx.Gas()),
				GasPrice: (*hexutil.Big)(tx.GasPrice()),
				Value:    (*hexutil.Big)(tx.Value()),
				Nonce:    hexutil.Uint64(tx.Nonce()),
				Data:     tx.Data(),
				ChainID:  (*hexutil.Big)(chainID),
			}

			var result json.RawMessage
			if err := client.CallContext(ctx, &result, SignTransactionMethod, args); err != nil {
				return nil, fmt.Errorf("%s failed: %w", SignTransactionMethod, err)
			}

			signed, err := decodeSignedTx(result)
			if err != nil {
				return nil, err
			}
			if err := matchesRequest(signer, from, tx, signed); err != nil {
				return nil, err
			}
			return signed, nil
		},
	}
}

// decodeSignedTx accepts either a bare raw transaction hex string or geth's
// {"raw": "0x...", "tx": {...}} result object.
func decodeSignedTx(result json.RawMessage) (*types.Transaction, error) {
	parsed := gjson.ParseBytes(result)

	var rawHex string
	switch {
	case parsed.Type == gjson.String:
		rawHex = parsed.String()
	case parsed.IsObject() && parsed.Get("raw").Exists():
		rawHex = parsed.Get("raw").String()
	default:
		return nil, fmt.Errorf("unexpected %s result: %s", SignTransactionMethod, parsed.Raw)
	}

	raw, err := hexutil.Decode(rawHex)
	if err != nil {
		return nil, fmt.Errorf("invalid raw transaction: %w", err)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("invalid raw transaction: %w", err)
	}
	return tx, nil
}

// matchesRequest rejects a signed transaction that differs from what was
// asked for or was signed by someone else.
func matchesRequest(signer types.Signer, from common.Address, want, got *types.Transaction) error {
	sender, err := types.Sender(signer, got)
	if err != nil {
		return fmt.Errorf("failed to recover signer: %w", err)
	}
	if sender != from {
		return fmt.Errorf("transaction signed by %s, expected %s", sender.Hex(), from.Hex())
	}
	if got.Nonce() != want.Nonce() || !bytes.Equal(got.Data(), want.Data()) || !sameRecipient(got.To(), want.To()) {
		return errors.New("wallet returned a transaction that does not match the request")
	}
	if got.Value().Cmp(want.Value()) != 0 {
		return errors.New("wallet changed the transaction value")
	}
	return nil
}

func sameRecipient(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
