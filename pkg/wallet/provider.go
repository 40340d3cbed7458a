package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/openclaw/claw-dex-client-go/pkg/contract"
)

const RequestAccountsMethod = "eth_requestAccounts"

var (
	ErrNoAccounts      = errors.New("wallet returned no accounts")
	ErrUnknownAccount  = errors.New("account not managed by this wallet")
	ErrMissingProvider = errors.New("no wallet provider configured")
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Provider is the wallet boundary: it hands out accounts, exposes the network
// the wallet is connected to, and produces transaction signers.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Backend() contract.Backend
	Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error)
}

// KeystoreConfig points the provider at a local encrypted keystore. When set,
// accounts come from the keystore and transactions are signed locally.
type KeystoreConfig struct {
	Dir        string
	Passphrase string
	// LightScrypt selects the cheap scrypt parameters used by dev keystores.
	LightScrypt bool
}

// Config holds the configuration for an RPCProvider.
type Config struct {
	URL      string
	Logger   Logger
	Keystore *KeystoreConfig
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return ErrMissingProvider
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Keystore != nil && c.Keystore.Dir == "" {
		return errors.New("config: Keystore.Dir is required when a keystore is configured")
	}
	return nil
}

// RPCProvider is a wallet reached over JSON-RPC, optionally backed by a local
// keystore for account management and signing.
type RPCProvider struct {
	rpcClient  *rpc.Client
	eth        *ethclient.Client
	keystore   *keystore.KeyStore
	passphrase string
	logger     Logger
}

// Dial connects to the wallet endpoint in cfg.
func Dial(ctx context.Context, cfg Config) (*RPCProvider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.Logger.Info("Connecting to wallet provider", "url", cfg.URL)
	rpcClient, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet provider: %w", err)
	}
	return NewRPCProvider(rpcClient, cfg.Logger, cfg.Keystore), nil
}

// NewRPCProvider wraps an established RPC client.
func NewRPCProvider(rpcClient *rpc.Client, logger Logger, ks *KeystoreConfig) *RPCProvider {
	p := &RPCProvider{
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
		logger:    logger,
	}
	if ks != nil {
		scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
		if ks.LightScrypt {
			scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
		}
		p.keystore = keystore.NewKeyStore(ks.Dir, scryptN, scryptP)
		p.passphrase = ks.Passphrase
	}
	return p
}

// RequestAccounts asks the wallet for account access. With a keystore the
// keystore's accounts are returned without a remote call.
func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var addrs []common.Address
	if p.keystore != nil {
		for _, acct := range p.keystore.Accounts() {
			addrs = append(addrs, acct.Address)
		}
	} else if err := p.rpcClient.CallContext(ctx, &addrs, RequestAccountsMethod); err != nil {
		return nil, fmt.Errorf("%s failed: %w", RequestAccountsMethod, err)
	}

	if len(addrs) == 0 {
		return nil, ErrNoAccounts
	}
	p.logger.Debug("Wallet granted accounts", "count", len(addrs))
	return addrs, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.eth.ChainID(ctx)
}

// Backend returns a client for the network the wallet is connected to.
func (p *RPCProvider) Backend() contract.Backend {
	return p.eth
}

// Signer returns transaction options for account on the wallet's chain.
func (p *RPCProvider) Signer(ctx context.Context, account common.Address) (*bind.TransactOpts, error) {
	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet chain id: %w", err)
	}

	if p.keystore == nil {
		return newRemoteSigner(ctx, p.rpcClient, account, chainID), nil
	}

	acct, err := p.keystore.Find(accounts.Account{Address: account})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, account.Hex())
	}
	if err := p.keystore.Unlock(acct, p.passphrase); err != nil {
		return nil, fmt.Errorf("failed to unlock %s: %w", account.Hex(), err)
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(p.keystore, acct, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// Close releases the underlying connection.
func (p *RPCProvider) Close() {
	p.rpcClient.Close()
}
