package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openclaw/claw-dex-client-go/pkg/chains"
	"github.com/openclaw/claw-dex-client-go/pkg/units"
	"github.com/openclaw/claw-dex-client-go/protocols/token"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPublicRPCURL = "https://mainnet.base.org"
	DefaultLogFile      = "client.log"
	DefaultCallTimeout  = 30 * time.Second
)

// TokenConfig is one side of the pair.
type TokenConfig struct {
	Symbol  string `yaml:"symbol"`
	Address string `yaml:"address"`
}

// ContractsConfig lists the deployed contracts the client talks to.
type ContractsConfig struct {
	Factory string        `yaml:"factory"`
	Pair    string        `yaml:"pair"`
	Tokens  []TokenConfig `yaml:"tokens"`
}

// KeystoreConfig enables local signing from an encrypted keystore directory.
// The passphrase is read from the environment variable named PassphraseEnv.
type KeystoreConfig struct {
	Dir           string `yaml:"dir"`
	PassphraseEnv string `yaml:"passphrase_env"`
}

type ClientConfig struct {
	ChainID      *big.Int        `yaml:"chain_id"`
	WalletRPCURL string          `yaml:"wallet_rpc_url"`
	PublicRPCURL string          `yaml:"public_rpc_url"`
	Keystore     *KeystoreConfig `yaml:"keystore"`
	Contracts    ContractsConfig `yaml:"contracts"`
	Decimals     uint8           `yaml:"decimals"`
	CallTimeout  time.Duration   `yaml:"call_timeout"`
	LogFile      string          `yaml:"log_file"`
	MetricsAddr  string          `yaml:"metrics_addr"`
}

// Default returns the configuration of the deployed CLAW/ETH pair on Base.
// No wallet provider is configured by default.
func Default() *ClientConfig {
	return &ClientConfig{
		ChainID:      new(big.Int).SetUint64(chains.Base),
		PublicRPCURL: DefaultPublicRPCURL,
		Contracts: ContractsConfig{
			Factory: "0x16341C5AFFd8Bf8310D4972670B54d05903524B6",
			Pair:    "0x1eb90b8c6b4DAf53Bab315e3919Ff44e12732A92",
			Tokens: []TokenConfig{
				{Symbol: "CLAW", Address: "0x72AfD80C0aa33e6fAa25dFDa6f791A237594b15d"},
				{Symbol: "ETH", Address: "0x2775e364824d85d86c26cEff04968e5DFa821CF3"},
			},
		},
		Decimals:    units.DefaultDecimals,
		CallTimeout: DefaultCallTimeout,
		LogFile:     DefaultLogFile,
	}
}

// LoadConfig reads a configuration file from the given path and unmarshals it
// over the defaults. An empty path yields the defaults.
func LoadConfig(path string) (*ClientConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Keystore != nil {
		dir, err := expandHome(cfg.Keystore.Dir)
		if err != nil {
			return nil, fmt.Errorf("keystore.dir: %w", err)
		}
		cfg.Keystore.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Validate checks that the configuration is complete and well formed.
func (c *ClientConfig) Validate() error {
	var errs []error
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		errs = append(errs, errors.New("chain_id must be positive"))
	}
	if c.PublicRPCURL == "" {
		errs = append(errs, errors.New("public_rpc_url is required"))
	}
	if c.Decimals > units.MaxDecimals {
		errs = append(errs, fmt.Errorf("decimals must be at most %d", units.MaxDecimals))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, errors.New("call_timeout must not be negative"))
	}
	if c.Keystore != nil && c.Keystore.Dir == "" {
		errs = append(errs, errors.New("keystore.dir is required when keystore is set"))
	}
	if c.Contracts.Factory != "" && !common.IsHexAddress(c.Contracts.Factory) {
		errs = append(errs, fmt.Errorf("contracts.factory %q is not an address", c.Contracts.Factory))
	}
	if err := validAddress("contracts.pair", c.Contracts.Pair); err != nil {
		errs = append(errs, err)
	}

	if len(c.Contracts.Tokens) != 2 {
		errs = append(errs, fmt.Errorf("contracts.tokens must list exactly two tokens, got %d", len(c.Contracts.Tokens)))
	}
	seen := make(map[string]bool)
	for i, t := range c.Contracts.Tokens {
		if t.Symbol == "" {
			errs = append(errs, fmt.Errorf("contracts.tokens[%d].symbol is required", i))
		} else if seen[t.Symbol] {
			errs = append(errs, fmt.Errorf("contracts.tokens[%d].symbol %q is duplicated", i, t.Symbol))
		}
		seen[t.Symbol] = true
		if err := validAddress(fmt.Sprintf("contracts.tokens[%d].address", i), t.Address); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validAddress(field, s string) error {
	if !common.IsHexAddress(s) {
		return fmt.Errorf("%s %q is not an address", field, s)
	}
	if common.HexToAddress(s) == (common.Address{}) {
		return fmt.Errorf("%s must not be the zero address", field)
	}
	return nil
}

// Tokens returns the configured tokens in reserve order.
func (c *ClientConfig) Tokens() []token.TokenView {
	out := make([]token.TokenView, len(c.Contracts.Tokens))
	for i, t := range c.Contracts.Tokens {
		out[i] = token.TokenView{Symbol: token.Symbol(t.Symbol), Address: common.HexToAddress(t.Address)}
	}
	return out
}

func (c *ClientConfig) Pair() common.Address {
	return common.HexToAddress(c.Contracts.Pair)
}

func (c *ClientConfig) Factory() common.Address {
	return common.HexToAddress(c.Contracts.Factory)
}

// KeystorePassphrase resolves the keystore passphrase from the environment.
func (c *ClientConfig) KeystorePassphrase() string {
	if c.Keystore == nil || c.Keystore.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Keystore.PassphraseEnv)
}
