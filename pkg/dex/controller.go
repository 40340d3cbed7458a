package dex

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openclaw/claw-dex-client-go/pkg/chains"
	"github.com/openclaw/claw-dex-client-go/pkg/contract"
	"github.com/openclaw/claw-dex-client-go/pkg/units"
	"github.com/openclaw/claw-dex-client-go/pkg/wallet"
	"github.com/openclaw/claw-dex-client-go/protocols/token"
	"github.com/openclaw/claw-dex-client-go/protocols/uniswapv2"
)

// Operation labels used for logs and metrics.
const (
	opRequestAccounts = "request_accounts"
	opVerifyChain     = "verify_chain"
	opBalanceOf       = "balance_of"
	opGetReserves     = "get_reserves"
	opApprove         = "approve"
	opInspect         = "inspect"
)

// ErrNothingToSubmit is returned by SubmitSwap when no account is connected
// or no amount has been entered. The state is left untouched.
var ErrNothingToSubmit = errors.New("swap needs a connected account and an amount")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the configuration for a Controller.
type Config struct {
	Logger Logger
	// Wallet is nil when no wallet provider is available.
	Wallet wallet.Provider
	// PublicRPC serves pool reads independently of the wallet's network.
	PublicRPC contract.Caller
	// ChainID is the chain the pair lives on. The wallet must match it.
	ChainID *big.Int
	// Tokens lists the pair's tokens in reserve order (token0, token1).
	Tokens   []token.TokenView
	Pair     common.Address
	Decimals uint8
	Metrics  *Metrics
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.PublicRPC == nil {
		return errors.New("config: PublicRPC is required")
	}
	if c.ChainID == nil {
		return errors.New("config: ChainID is required")
	}
	if len(c.Tokens) != 2 {
		return fmt.Errorf("config: exactly two tokens are required, got %d", len(c.Tokens))
	}
	if c.Tokens[0].Symbol == c.Tokens[1].Symbol {
		return fmt.Errorf("config: duplicate token symbol %q", c.Tokens[0].Symbol)
	}
	if c.Pair == (common.Address{}) {
		return errors.New("config: Pair address is required")
	}
	if c.Decimals > units.MaxDecimals {
		return fmt.Errorf("config: Decimals must be at most %d", units.MaxDecimals)
	}
	return nil
}

// PairInfo is what the pair and its tokens report about themselves on chain.
type PairInfo struct {
	Pair   common.Address
	Token0 common.Address
	Token1 common.Address
	Tokens []token.Metadata
}

// Controller holds the UI state and performs the remote reads and writes that
// change it. It is safe for concurrent use; overlapping operations apply their
// results in arrival order.
type Controller struct {
	mu    sync.Mutex
	state State

	wallet   wallet.Provider
	public   contract.Caller
	chainID  *big.Int
	tokens   *token.Registry
	pair     *uniswapv2.Pair
	decimals uint8

	initOnce sync.Once
	initErr  error

	metrics *Metrics
	logger  Logger
}

// NewController creates a controller in its initial, disconnected state.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	registry := token.NewRegistry(cfg.Tokens)

	return &Controller{
		state:    InitialState(registry.Symbols()),
		wallet:   cfg.Wallet,
		public:   cfg.PublicRPC,
		chainID:  cfg.ChainID,
		tokens:   registry,
		pair:     uniswapv2.New(cfg.Pair),
		decimals: cfg.Decimals,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}, nil
}

// State returns a snapshot of the current state. The returned maps are
// copies.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Balances = maps.Clone(s.Balances)
	s.Reserves = maps.Clone(s.Reserves)
	return s
}

// Tokens returns the configured tokens in reserve order.
func (c *Controller) Tokens() []token.TokenView {
	return c.tokens.All()
}

// PairAddress returns the configured pair contract.
func (c *Controller) PairAddress() common.Address {
	return c.pair.Address()
}

func (c *Controller) dispatch(ev Event) {
	c.mu.Lock()
	c.state = Reduce(c.state, ev)
	c.mu.Unlock()
	c.logger.Debug("Applied event", "event", fmt.Sprintf("%T", ev))
}

// Init performs the one-time reserve fetch. Later calls return the first
// call's result without touching the network.
func (c *Controller) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.fetchReserves(ctx)
	})
	return c.initErr
}

// Connect requests account access from the wallet, stores the first account
// and loads its balances. Failures end up in the status message.
func (c *Controller) Connect(ctx context.Context) error {
	if c.wallet == nil {
		c.dispatch(ConnectFailed{Status: StatusInstallWallet})
		return wallet.ErrMissingProvider
	}
	c.dispatch(ConnectStarted{})

	start := time.Now()
	accounts, err := c.wallet.RequestAccounts(ctx)
	c.metrics.observe(opRequestAccounts, start, err)
	if err != nil {
		c.logger.Warn("Wallet connection failed", "error", err)
		c.dispatch(ConnectFailed{Status: StatusConnectFailed})
		return err
	}

	if len(accounts) == 0 {
		c.logger.Warn("Wallet granted no accounts")
		c.dispatch(ConnectFailed{Status: StatusConnectFailed})
		return wallet.ErrNoAccounts
	}

	account := accounts[0]
	c.dispatch(AccountGranted{Account: account})
	c.logger.Info("Wallet connected", "account", account.Hex())

	start = time.Now()
	err = chains.Verify(ctx, "wallet", c.wallet, c.chainID)
	c.metrics.observe(opVerifyChain, start, err)
	if err != nil {
		c.logger.Warn("Wallet is on the wrong network", "error", err)
		c.dispatch(WrongNetwork{Reason: err.Error()})
		return err
	}

	if err := c.FetchBalances(ctx, account); err != nil {
		c.dispatch(ConnectFailed{Status: StatusConnectFailed})
		return err
	}
	return nil
}

// FetchBalances reads the balance of both tokens for owner through the
// wallet's network. On failure the balances are left as they were.
func (c *Controller) FetchBalances(ctx context.Context, owner common.Address) error {
	if c.wallet == nil {
		return wallet.ErrMissingProvider
	}
	backend := c.wallet.Backend()

	balances := make(Amounts, 2)
	for _, t := range c.tokens.All() {
		start := time.Now()
		bal, err := token.New(t.Address).BalanceOf(ctx, backend, owner)
		c.metrics.observe(opBalanceOf, start, err)
		if err != nil {
			c.logger.Error("Failed to fetch balance", "token", t.Symbol, "owner", owner.Hex(), "error", err)
			return fmt.Errorf("balance of %s: %w", t.Symbol, err)
		}
		balances[t.Symbol] = units.FormatUnits(bal, c.decimals)
	}

	c.dispatch(BalancesLoaded{Balances: balances})
	return nil
}

// fetchReserves reads both reserves through the public RPC endpoint and maps
// reserve0/reserve1 onto the first/second configured token.
func (c *Controller) fetchReserves(ctx context.Context) error {
	start := time.Now()
	pool, err := c.pair.Reserves(ctx, c.public)
	c.metrics.observe(opGetReserves, start, err)
	if err != nil {
		c.logger.Error("Failed to fetch reserves", "pair", c.pair.Address().Hex(), "error", err)
		return fmt.Errorf("reserves: %w", err)
	}

	tokens := c.tokens.All()
	c.dispatch(ReservesLoaded{Reserves: Amounts{
		tokens[0].Symbol: units.FormatUnits(pool.Reserve0, c.decimals),
		tokens[1].Symbol: units.FormatUnits(pool.Reserve1, c.decimals),
	}})
	return nil
}

// SetAmount stores the raw swap amount as typed. It is validated only when a
// swap is submitted.
func (c *Controller) SetAmount(amount string) {
	c.dispatch(AmountChanged{Amount: amount})
}

// SubmitSwap approves the pair to spend the entered amount of tokenIn from
// the connected account. It sends exactly one approve transaction and never
// calls the pair's swap function.
func (c *Controller) SubmitSwap(ctx context.Context, tokenIn token.Symbol) (common.Hash, error) {
	st := c.State()
	if !st.Connected() || st.SwapAmount == "" {
		return common.Hash{}, ErrNothingToSubmit
	}

	c.dispatch(SwapStarted{})

	fail := func(err error) (common.Hash, error) {
		c.logger.Warn("Swap failed", "token_in", tokenIn, "amount", st.SwapAmount, "error", err)
		c.dispatch(SwapFailed{Reason: err.Error()})
		return common.Hash{}, err
	}

	tok, ok := c.tokens.GetBySymbol(tokenIn)
	if !ok {
		return fail(fmt.Errorf("unknown token %q", tokenIn))
	}
	amount, err := units.ParseUnits(st.SwapAmount, c.decimals)
	if err != nil {
		return fail(err)
	}
	opts, err := c.wallet.Signer(ctx, st.Account)
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	tx, err := token.New(tok.Address).Approve(ctx, c.wallet.Backend(), opts, c.pair.Address(), amount)
	c.metrics.observe(opApprove, start, err)
	if err != nil {
		return fail(err)
	}

	c.logger.Info("Approval submitted", "token_in", tokenIn, "amount", amount, "spender", c.pair.Address().Hex(), "tx", tx.Hash().Hex())
	c.dispatch(ApprovalSent{Tx: tx.Hash()})
	return tx.Hash(), nil
}

// Inspect reads token metadata and the pair's token ordering through the
// public RPC endpoint. It does not change the state.
func (c *Controller) Inspect(ctx context.Context) (PairInfo, error) {
	start := time.Now()
	info, err := c.inspect(ctx)
	c.metrics.observe(opInspect, start, err)
	return info, err
}

func (c *Controller) inspect(ctx context.Context) (PairInfo, error) {
	token0, token1, err := c.pair.Tokens(ctx, c.public)
	if err != nil {
		return PairInfo{}, err
	}
	info := PairInfo{Pair: c.pair.Address(), Token0: token0, Token1: token1}

	for _, t := range c.tokens.All() {
		meta, err := token.New(t.Address).Metadata(ctx, c.public)
		if err != nil {
			return PairInfo{}, fmt.Errorf("metadata of %s: %w", t.Symbol, err)
		}
		info.Tokens = append(info.Tokens, meta)
	}

	tokens := c.tokens.All()
	if token0 != tokens[0].Address || token1 != tokens[1].Address {
		c.logger.Warn("Configured token order differs from pair ordering",
			"token0", token0.Hex(), "token1", token1.Hex(),
			"configured0", tokens[0].Address.Hex(), "configured1", tokens[1].Address.Hex())
	}
	return info, nil
}
