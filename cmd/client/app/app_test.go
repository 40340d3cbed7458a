package app

import (
	"context"
	"math/big"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/openclaw/claw-dex-client-go/cmd/client/config"
	"github.com/openclaw/claw-dex-client-go/pkg/chains"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainService answers eth_chainId; every other eth_ method is unknown.
type chainService struct {
	id *big.Int
}

func (s *chainService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(s.id)
}

func newChainServer(t *testing.T, id uint64) string {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &chainService{id: new(big.Int).SetUint64(id)}))
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		server.Stop()
	})
	return ts.URL
}

func testConfig(t *testing.T, publicURL string) *config.ClientConfig {
	t.Helper()
	cfg := config.Default()
	cfg.PublicRPCURL = publicURL
	cfg.LogFile = filepath.Join(t.TempDir(), "client.log")
	cfg.CallTimeout = 5 * time.Second
	return cfg
}

func TestCallContext(t *testing.T) {
	tests := []struct {
		name        string
		timeout     time.Duration
		hasDeadline bool
	}{
		{"configured timeout", 5 * time.Second, true},
		{"zero timeout", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &App{Config: &config.ClientConfig{CallTimeout: tt.timeout}}

			before := time.Now()
			ctx, cancel := a.CallContext(context.Background())
			deadline, ok := ctx.Deadline()
			assert.Equal(t, tt.hasDeadline, ok)
			if ok {
				assert.WithinDuration(t, before.Add(tt.timeout), deadline, time.Second)
			}

			cancel()
			assert.ErrorIs(t, ctx.Err(), context.Canceled)
		})
	}

	t.Run("parent deadline is kept", func(t *testing.T) {
		a := &App{Config: &config.ClientConfig{}}
		parent, stop := context.WithTimeout(context.Background(), time.Minute)
		defer stop()

		ctx, cancel := a.CallContext(parent)
		defer cancel()
		want, _ := parent.Deadline()
		got, ok := ctx.Deadline()
		require.True(t, ok)
		assert.Equal(t, want, got)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("public endpoint on another chain", func(t *testing.T) {
		cfg := testConfig(t, newChainServer(t, chains.Mainnet))

		a, err := New(ctx, cfg, prometheus.NewRegistry())
		var mismatch *chains.MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Nil(t, a)
		assert.Equal(t, cfg.PublicRPCURL, mismatch.Endpoint)
		assert.Equal(t, int64(chains.Mainnet), mismatch.Got.Int64())

		logged, err := os.ReadFile(cfg.LogFile)
		require.NoError(t, err)
		assert.Contains(t, string(logged), "Public RPC chain check failed")
	})

	t.Run("unwritable log file", func(t *testing.T) {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.LogFile = filepath.Join(t.TempDir(), "missing", "client.log")

		a, err := New(ctx, cfg, nil)
		require.Error(t, err)
		assert.Nil(t, a)
	})

	t.Run("read-only client", func(t *testing.T) {
		cfg := testConfig(t, newChainServer(t, chains.Base))

		a, err := New(ctx, cfg, prometheus.NewRegistry())
		require.NoError(t, err)
		t.Cleanup(a.Close)

		require.NotNil(t, a.Controller)
		assert.Nil(t, a.wallet)
		assert.Equal(t, cfg.Pair(), a.Controller.PairAddress())
	})
}
