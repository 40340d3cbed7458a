package dex

import (
	"maps"

	"github.com/ethereum/go-ethereum/common"
	"github.com/openclaw/claw-dex-client-go/protocols/token"
)

// Phase is the wallet connection phase implied by the account field.
type Phase uint8

const (
	Disconnected Phase = iota
	Connecting
	Connected
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Status messages shown to the user.
const (
	StatusInstallWallet  = "Please install a wallet provider"
	StatusConnectFailed  = "Failed to connect wallet"
	StatusProcessingSwap = "Processing swap..."
	statusWrongNetwork   = "Wrong network: "
	statusSwapFailed     = "Swap failed: "
	statusApprovalSent   = "Approval submitted: "
)

// Amounts maps a token symbol to a decimal-formatted amount.
type Amounts map[token.Symbol]string

// State is the complete UI state of the controller. Values are never mutated
// in place; Reduce returns a new State.
type State struct {
	Phase      Phase
	Account    common.Address
	Balances   Amounts
	Reserves   Amounts
	SwapAmount string
	Status     string
	LastTx     common.Hash
}

// Connected reports whether an account has been obtained from the wallet.
func (s State) Connected() bool {
	return s.Account != (common.Address{})
}

// InitialState returns the state before any interaction, with every
// configured symbol shown as zero.
func InitialState(symbols []token.Symbol) State {
	zero := make(Amounts, len(symbols))
	for _, s := range symbols {
		zero[s] = "0"
	}
	return State{
		Balances: zero,
		Reserves: maps.Clone(zero),
	}
}

// Event is a state transition input.
type Event interface {
	isEvent()
}

type (
	ConnectStarted struct{}
	ConnectFailed  struct{ Status string }
	AccountGranted struct{ Account common.Address }
	WrongNetwork   struct{ Reason string }
	BalancesLoaded struct{ Balances Amounts }
	ReservesLoaded struct{ Reserves Amounts }
	AmountChanged  struct{ Amount string }
	SwapStarted    struct{}
	SwapFailed     struct{ Reason string }
	ApprovalSent   struct{ Tx common.Hash }
)

func (ConnectStarted) isEvent() {}
func (ConnectFailed) isEvent()  {}
func (AccountGranted) isEvent() {}
func (WrongNetwork) isEvent()   {}
func (BalancesLoaded) isEvent() {}
func (ReservesLoaded) isEvent() {}
func (AmountChanged) isEvent()  {}
func (SwapStarted) isEvent()    {}
func (SwapFailed) isEvent()     {}
func (ApprovalSent) isEvent()   {}

// Reduce applies ev to s and returns the resulting state. It is pure: maps in
// s are copied, never written.
func Reduce(s State, ev Event) State {
	next := s
	switch e := ev.(type) {
	case ConnectStarted:
		if !s.Connected() {
			next.Phase = Connecting
		}
	case ConnectFailed:
		if !s.Connected() {
			next.Phase = Disconnected
		}
		next.Status = e.Status
	case AccountGranted:
		next.Phase = Connected
		next.Account = e.Account
	case WrongNetwork:
		next.Status = statusWrongNetwork + e.Reason
	case BalancesLoaded:
		next.Balances = maps.Clone(e.Balances)
	case ReservesLoaded:
		next.Reserves = maps.Clone(e.Reserves)
	case AmountChanged:
		next.SwapAmount = e.Amount
	case SwapStarted:
		next.Status = StatusProcessingSwap
	case SwapFailed:
		next.Status = statusSwapFailed + e.Reason
	case ApprovalSent:
		next.LastTx = e.Tx
		next.Status = statusApprovalSent + e.Tx.Hex()
	}
	return next
}
