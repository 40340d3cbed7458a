package chains

import (
	"context"
	"fmt"
	"math/big"
)

const (
	Mainnet     uint64 = 1
	Base        uint64 = 8453
	BaseSepolia uint64 = 84532
)

// Name returns a human readable name for a known chain ID.
func Name(id uint64) string {
	switch id {
	case Mainnet:
		return "ethereum"
	case Base:
		return "base"
	case BaseSepolia:
		return "base-sepolia"
	default:
		return fmt.Sprintf("chain-%d", id)
	}
}

// ChainIDReader is satisfied by *ethclient.Client and wallet providers.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// MismatchError reports an endpoint serving a different chain than expected.
type MismatchError struct {
	Endpoint string
	Want     *big.Int
	Got      *big.Int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s is on %s (chain id %s), expected %s (chain id %s)",
		e.Endpoint, Name(e.Got.Uint64()), e.Got, Name(e.Want.Uint64()), e.Want)
}

// Verify asks the endpoint for its chain ID and compares it against want.
func Verify(ctx context.Context, endpoint string, reader ChainIDReader, want *big.Int) error {
	got, err := reader.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain id from %s: %w", endpoint, err)
	}
	if got.Cmp(want) != 0 {
		return &MismatchError{Endpoint: endpoint, Want: want, Got: got}
	}
	return nil
}
