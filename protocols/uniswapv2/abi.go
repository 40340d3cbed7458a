package uniswapv2

import "github.com/openclaw/claw-dex-client-go/pkg/contract"

// PairABI is the subset of the Uniswap V2 pair interface the client knows
// about. swap is declared for completeness; the client does not call it.
const PairABI = `[
	{"type":"function","name":"getReserves","stateMutability":"view","inputs":[],"outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},
	{"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"token1","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[{"name":"amount0Out","type":"uint256"},{"name":"amount1Out","type":"uint256"},{"name":"to","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]}
]`

var pairABI = contract.MustParseABI(PairABI)
