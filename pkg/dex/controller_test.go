package dex

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/openclaw/claw-dex-client-go/pkg/contract"
	"github.com/openclaw/claw-dex-client-go/pkg/contract/contracttest"
	"github.com/openclaw/claw-dex-client-go/pkg/units"
	"github.com/openclaw/claw-dex-client-go/pkg/wallet"
	"github.com/openclaw/claw-dex-client-go/protocols/token"
	"github.com/openclaw/claw-dex-client-go/protocols/uniswapv2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	clawAddr = common.HexToAddress("0x72AfD80C0aa33e6fAa25dFDa6f791A237594b15d")
	ethAddr  = common.HexToAddress("0x2775e364824d85d86c26cEff04968e5DFa821CF3")
	pairAddr = common.HexToAddress("0x1eb90b8c6b4DAf53Bab315e3919Ff44e12732A92")

	baseChainID = big.NewInt(8453)
	testLogger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// fakeWallet is an in-memory wallet.Provider.
type fakeWallet struct {
	key        *ecdsa.PrivateKey
	accounts   []common.Address
	requestErr error
	chainID    *big.Int
	backend    *contracttest.Backend
	requests   int
}

func newFakeWallet(t *testing.T) *fakeWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &fakeWallet{
		key:      key,
		accounts: []common.Address{crypto.PubkeyToAddress(key.PublicKey)},
		chainID:  baseChainID,
		backend:  contracttest.NewBackend(),
	}
}

func (w *fakeWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	w.requests++
	if w.requestErr != nil {
		return nil, w.requestErr
	}
	return w.accounts, nil
}

func (w *fakeWallet) ChainID(context.Context) (*big.Int, error) {
	return w.chainID, nil
}

func (w *fakeWallet) Backend() contract.Backend {
	return w.backend
}

func (w *fakeWallet) Signer(_ context.Context, account common.Address) (*bind.TransactOpts, error) {
	if account != w.accounts[0] {
		return nil, wallet.ErrUnknownAccount
	}
	return bind.NewKeyedTransactorWithChainID(w.key, w.chainID)
}

func tokens() []token.TokenView {
	return []token.TokenView{
		{Symbol: "CLAW", Address: clawAddr},
		{Symbol: "ETH", Address: ethAddr},
	}
}

func wei(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := units.ParseUnits(s, units.DefaultDecimals)
	require.NoError(t, err)
	return v
}

type fixture struct {
	controller *Controller
	wallet     *fakeWallet
	public     *contracttest.Backend
	registry   *prometheus.Registry
}

func newFixture(t *testing.T, withWallet bool) *fixture {
	t.Helper()
	f := &fixture{
		public:   contracttest.NewBackend(),
		registry: prometheus.NewRegistry(),
	}

	cfg := Config{
		Logger:    testLogger,
		PublicRPC: f.public,
		ChainID:   baseChainID,
		Tokens:    tokens(),
		Pair:      pairAddr,
		Decimals:  units.DefaultDecimals,
		Metrics:   NewMetrics(f.registry),
	}
	if withWallet {
		f.wallet = newFakeWallet(t)
		cfg.Wallet = f.wallet

		owner := f.wallet.accounts[0]
		balances := map[common.Address]*big.Int{clawAddr: wei(t, "12.5"), ethAddr: wei(t, "0.000000000000000001")}
		for addr, bal := range balances {
			bal := bal
			f.wallet.backend.RespondFunc(addr, token.ABI(), "balanceOf", func(args []any) ([]any, error) {
				if args[0].(common.Address) != owner {
					return []any{big.NewInt(0)}, nil
				}
				return []any{bal}, nil
			})
		}
	}

	f.public.Respond(pairAddr, uniswapv2.ABI(), "getReserves", wei(t, "1000000"), wei(t, "250.75"), uint32(1700000000))

	c, err := NewController(cfg)
	require.NoError(t, err)
	f.controller = c
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.controller.Connect(context.Background()))
}

func TestNewControllerValidation(t *testing.T) {
	base := Config{
		Logger:    testLogger,
		PublicRPC: contracttest.NewBackend(),
		ChainID:   baseChainID,
		Tokens:    tokens(),
		Pair:      pairAddr,
		Decimals:  18,
	}

	_, err := NewController(base)
	require.NoError(t, err)

	tests := map[string]func(c *Config){
		"missing logger":   func(c *Config) { c.Logger = nil },
		"missing rpc":      func(c *Config) { c.PublicRPC = nil },
		"missing chain id": func(c *Config) { c.ChainID = nil },
		"one token":        func(c *Config) { c.Tokens = c.Tokens[:1] },
		"duplicate symbol": func(c *Config) {
			c.Tokens = []token.TokenView{{Symbol: "X", Address: clawAddr}, {Symbol: "X", Address: ethAddr}}
		},
		"zero pair":     func(c *Config) { c.Pair = common.Address{} },
		"huge decimals": func(c *Config) { c.Decimals = 200 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			cfg.Tokens = tokens()
			mutate(&cfg)
			_, err := NewController(cfg)
			require.Error(t, err)
		})
	}
}

func TestInitialState(t *testing.T) {
	f := newFixture(t, true)
	st := f.controller.State()
	assert.Equal(t, Disconnected, st.Phase)
	assert.False(t, st.Connected())
	assert.Equal(t, Amounts{"CLAW": "0", "ETH": "0"}, st.Balances)
	assert.Equal(t, Amounts{"CLAW": "0", "ETH": "0"}, st.Reserves)
	assert.Empty(t, st.Status)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("no wallet provider", func(t *testing.T) {
		f := newFixture(t, false)
		err := f.controller.Connect(ctx)
		require.ErrorIs(t, err, wallet.ErrMissingProvider)

		st := f.controller.State()
		assert.Equal(t, StatusInstallWallet, st.Status)
		assert.True(t, strings.Contains(strings.ToLower(st.Status), "please install"))
		assert.False(t, st.Connected())
		assert.Empty(t, f.public.Calls())
	})

	t.Run("user rejects", func(t *testing.T) {
		f := newFixture(t, true)
		f.wallet.requestErr = errors.New("User rejected the request.")

		err := f.controller.Connect(ctx)
		require.Error(t, err)

		st := f.controller.State()
		assert.Equal(t, StatusConnectFailed, st.Status)
		assert.Equal(t, Disconnected, st.Phase)
		assert.False(t, st.Connected())
		assert.Empty(t, f.wallet.backend.Calls())
	})

	t.Run("empty account list", func(t *testing.T) {
		f := newFixture(t, true)
		f.wallet.accounts = []common.Address{}

		err := f.controller.Connect(ctx)
		require.ErrorIs(t, err, wallet.ErrNoAccounts)

		st := f.controller.State()
		assert.Equal(t, StatusConnectFailed, st.Status)
		assert.Equal(t, Disconnected, st.Phase)
		assert.False(t, st.Connected())
		assert.Empty(t, f.wallet.backend.Calls())
	})

	t.Run("success loads balances of the first account", func(t *testing.T) {
		f := newFixture(t, true)
		second := common.HexToAddress("0x00000000000000000000000000000000000000bb")
		f.wallet.accounts = append(f.wallet.accounts, second)
		account := f.wallet.accounts[0]

		f.connect(t)

		st := f.controller.State()
		assert.Equal(t, Connected, st.Phase)
		assert.Equal(t, account, st.Account)
		assert.Equal(t, Amounts{"CLAW": "12.5", "ETH": "0.000000000000000001"}, st.Balances)
		assert.Empty(t, st.Status)

		calls := f.wallet.backend.CallsTo("balanceOf")
		require.Len(t, calls, 2)
		assert.Equal(t, clawAddr, calls[0].To)
		assert.Equal(t, ethAddr, calls[1].To)
		for _, c := range calls {
			assert.Equal(t, account, c.Args[0])
		}
		assert.Empty(t, f.public.Calls(), "balances must be read through the wallet's network")
	})

	t.Run("wrong network", func(t *testing.T) {
		f := newFixture(t, true)
		f.wallet.chainID = big.NewInt(1)

		err := f.controller.Connect(ctx)
		require.Error(t, err)

		st := f.controller.State()
		assert.True(t, strings.HasPrefix(st.Status, "Wrong network"))
		assert.True(t, st.Connected())
		assert.Empty(t, f.wallet.backend.CallsTo("balanceOf"))
	})

	t.Run("balance failure reported as connect failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.wallet.backend.CallErr = errors.New("execution reverted")

		err := f.controller.Connect(ctx)
		require.Error(t, err)

		st := f.controller.State()
		assert.Equal(t, StatusConnectFailed, st.Status)
		assert.True(t, st.Connected())
		assert.Equal(t, Amounts{"CLAW": "0", "ETH": "0"}, st.Balances)
	})
}

func TestInitFetchesReservesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	require.NoError(t, f.controller.Init(ctx))
	st := f.controller.State()
	assert.Equal(t, Amounts{"CLAW": "1000000.0", "ETH": "250.75"}, st.Reserves)
	assert.False(t, st.Connected(), "reserves load without a wallet connection")

	f.connect(t)
	require.NoError(t, f.controller.Init(ctx))
	require.NoError(t, f.controller.Init(ctx))

	assert.Len(t, f.public.CallsTo("getReserves"), 1)
	assert.Empty(t, f.wallet.backend.CallsTo("getReserves"), "reserves are read through the public endpoint")
}

func TestInitFailureLeavesReserves(t *testing.T) {
	f := newFixture(t, false)
	f.public.CallErr = errors.New("429 too many requests")

	require.Error(t, f.controller.Init(context.Background()))
	assert.Equal(t, Amounts{"CLAW": "0", "ETH": "0"}, f.controller.State().Reserves)

	f.public.CallErr = nil
	require.Error(t, f.controller.Init(context.Background()), "init is not retried")
}

func TestSubmitSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("no account", func(t *testing.T) {
		f := newFixture(t, true)
		f.controller.SetAmount("1")

		_, err := f.controller.SubmitSwap(ctx, "CLAW")
		require.ErrorIs(t, err, ErrNothingToSubmit)
		assert.Empty(t, f.controller.State().Status)
		assert.Empty(t, f.wallet.backend.Sent())
	})

	t.Run("empty amount", func(t *testing.T) {
		f := newFixture(t, true)
		f.connect(t)
		before := f.controller.State()

		_, err := f.controller.SubmitSwap(ctx, "CLAW")
		require.ErrorIs(t, err, ErrNothingToSubmit)
		assert.Equal(t, before.Status, f.controller.State().Status)
		assert.Empty(t, f.wallet.backend.Sent())
	})

	t.Run("approves the pair for the parsed amount", func(t *testing.T) {
		f := newFixture(t, true)
		f.connect(t)
		f.controller.SetAmount("1.5")

		hash, err := f.controller.SubmitSwap(ctx, "CLAW")
		require.NoError(t, err)

		sent := f.wallet.backend.Sent()
		require.Len(t, sent, 1)
		tx := sent[0]
		assert.Equal(t, hash, tx.Hash())
		assert.Equal(t, clawAddr, *tx.To())

		approve := token.ABI().Methods["approve"]
		require.Equal(t, []byte(approve.ID), tx.Data()[:4])
		args, err := approve.Inputs.Unpack(tx.Data()[4:])
		require.NoError(t, err)
		assert.Equal(t, pairAddr, args[0])
		assert.Equal(t, "1500000000000000000", args[1].(*big.Int).String())

		swapID := uniswapv2.ABI().Methods["swap"].ID
		for _, s := range sent {
			assert.NotEqual(t, pairAddr, *s.To())
			assert.NotEqual(t, []byte(swapID), s.Data()[:4])
		}

		st := f.controller.State()
		assert.Equal(t, hash, st.LastTx)
		assert.Equal(t, "Approval submitted: "+hash.Hex(), st.Status)
	})

	t.Run("second token", func(t *testing.T) {
		f := newFixture(t, true)
		f.connect(t)
		f.controller.SetAmount("2")

		_, err := f.controller.SubmitSwap(ctx, "ETH")
		require.NoError(t, err)
		require.Len(t, f.wallet.backend.Sent(), 1)
		assert.Equal(t, ethAddr, *f.wallet.backend.Sent()[0].To())
	})

	t.Run("malformed amount never reaches the chain", func(t *testing.T) {
		f := newFixture(t, true)
		f.connect(t)
		f.controller.SetAmount("1,5")

		_, err := f.controller.SubmitSwap(ctx, "CLAW")
		var perr *units.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, units.ReasonSyntax, perr.Reason)

		assert.True(t, strings.HasPrefix(f.controller.State().Status, "Swap failed: "))
		assert.Empty(t, f.wallet.backend.Sent())
	})

	t.Run("bare sign is not an amount", func(t *testing.T) {
		for _, input := range []string{"+", "+."} {
			f := newFixture(t, true)
			f.connect(t)
			f.controller.SetAmount(input)

			_, err := f.controller.SubmitSwap(ctx, "CLAW")
			var perr *units.ParseError
			require.ErrorAs(t, err, &perr, input)
			assert.Equal(t, units.ReasonSyntax, perr.Reason, input)
			assert.Empty(t, f.wallet.backend.Sent(), input)
			assert.Equal(t, common.Hash{}, f.controller.State().LastTx, input)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t, true)
		f.connect(t)
		f.controller.SetAmount("1")

		_, err := f.controller.SubmitSwap(ctx, "USDC")
		require.Error(t, err)
		assert.Contains(t, f.controller.State().Status, "USDC")
		assert.Empty(t, f.wallet.backend.Sent())
	})

	t.Run("broadcast failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.connect(t)
		f.controller.SetAmount("1")
		f.wallet.backend.SendErr = errors.New("insufficient funds for gas * price + value")

		_, err := f.controller.SubmitSwap(ctx, "CLAW")
		require.Error(t, err)
		st := f.controller.State()
		assert.True(t, strings.HasPrefix(st.Status, "Swap failed: "))
		assert.Contains(t, st.Status, "insufficient funds")
		assert.Equal(t, common.Hash{}, st.LastTx)
	})
}

func TestInspect(t *testing.T) {
	f := newFixture(t, false)
	f.public.Respond(pairAddr, uniswapv2.ABI(), "token0", clawAddr)
	f.public.Respond(pairAddr, uniswapv2.ABI(), "token1", ethAddr)
	for addr, sym := range map[common.Address]string{clawAddr: "CLAW", ethAddr: "ETH"} {
		f.public.Respond(addr, token.ABI(), "name", sym+" Token")
		f.public.Respond(addr, token.ABI(), "symbol", sym)
		f.public.Respond(addr, token.ABI(), "decimals", uint8(18))
	}

	info, err := f.controller.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pairAddr, info.Pair)
	assert.Equal(t, clawAddr, info.Token0)
	assert.Equal(t, ethAddr, info.Token1)
	require.Len(t, info.Tokens, 2)
	assert.Equal(t, "CLAW", info.Tokens[0].Symbol)
	assert.Equal(t, "ETH Token", info.Tokens[1].Name)

	assert.Empty(t, f.public.CallsTo("getReserves"))
	assert.Equal(t, Amounts{"CLAW": "0", "ETH": "0"}, f.controller.State().Reserves)
}

func TestMetricsRecorded(t *testing.T) {
	f := newFixture(t, true)
	f.wallet.requestErr = errors.New("rejected")
	_ = f.controller.Connect(context.Background())
	require.NoError(t, f.controller.Init(context.Background()))

	m := f.controller.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues(opRequestAccounts, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues(opGetReserves, "ok")))
}
