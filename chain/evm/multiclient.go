package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

const (
	// Default retry configuration for RPC calls
	RPCDefaultRetryAttempts = 1
	RPCDefaultRetryDelay    = 1000 * time.Millisecond
	RPCDefaultRetryTimeout  = 10 * time.Second

	// Default retry configuration for dialing RPC endpoints
	RPCDefaultDialRetryAttempts = 1
	RPCDefaultDialRetryDelay    = 1000 * time.Millisecond
	RPCDefaultDialTimeout       = 10 * time.Second

	// Default timeout for health checks
	RPCDefaultHealthCheckTimeout = 2 * time.Second
)

type RetryConfig struct {
	Attempts     uint
	Delay        time.Duration
	Timeout      time.Duration
	DialAttempts uint
	DialDelay    time.Duration
	DialTimeout  time.Duration
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     RPCDefaultRetryAttempts,
		Delay:        RPCDefaultRetryDelay,
		Timeout:      RPCDefaultRetryTimeout,
		DialAttempts: RPCDefaultDialRetryAttempts,
		DialDelay:    RPCDefaultDialRetryDelay,
		DialTimeout:  RPCDefaultDialTimeout,
	}
}

// WithRetry overrides the per-call and dial retry attempts and delay. Zero values keep the
// defaults.
func WithRetry(attempts uint, delay time.Duration) func(*MultiClient) {
	return func(mc *MultiClient) {
		if attempts > 0 {
			mc.RetryConfig.Attempts = attempts
			mc.RetryConfig.DialAttempts = attempts
		}
		if delay > 0 {
			mc.RetryConfig.Delay = delay
			mc.RetryConfig.DialDelay = delay
		}
	}
}

// MultiClient should comply with the OnchainClient interface
var _ OnchainClient = &MultiClient{}

// MultiClient is an OnchainClient backed by a primary RPC and any number of backups. Calls are
// retried against each client in turn, and a backup that succeeds becomes the new primary.
type MultiClient struct {
	RetryConfig RetryConfig

	lggr      logger.Logger
	chainName string

	mu      sync.RWMutex
	primary *ethclient.Client
	backups []*ethclient.Client
}

// NewMultiClient dials and health-checks every RPC in rpcsCfg. RPCs that cannot be dialed or fail
// the health check are skipped; at least one must succeed.
func NewMultiClient(lggr logger.Logger, rpcsCfg RPCConfig, opts ...func(client *MultiClient)) (*MultiClient, error) {
	if len(rpcsCfg.RPCs) == 0 {
		return nil, errors.New("no RPCs provided, need at least one")
	}

	mc := &MultiClient{
		RetryConfig: defaultRetryConfig(),
		lggr:        lggr,
		chainName:   rpcsCfg.ChainName,
	}
	for _, opt := range opts {
		opt(mc)
	}

	healthy := make([]*ethclient.Client, 0, len(rpcsCfg.RPCs))
	for i, r := range rpcsCfg.RPCs {
		client, err := mc.dialWithRetry(r)
		if err != nil {
			lggr.Warnw("Skipping RPC that could not be dialed",
				"chain", mc.chainName, "rpc", r.Name, "index", i, "err", err)

			continue
		}
		if err := rpcHealthCheck(context.Background(), client); err != nil {
			lggr.Warnw("Skipping RPC that failed the health check",
				"chain", mc.chainName, "rpc", r.Name, "index", i, "err", err)
			client.Close()

			continue
		}
		healthy = append(healthy, client)
	}

	if len(healthy) == 0 {
		return nil, fmt.Errorf("no valid RPC clients created for chain %q", mc.chainName)
	}

	mc.primary = healthy[0]
	mc.backups = healthy[1:]

	return mc, nil
}

// rpcHealthCheck asks the node for its latest block number.
func rpcHealthCheck(ctx context.Context, client *ethclient.Client) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, RPCDefaultHealthCheckTimeout)
	defer cancel()

	if _, err := client.BlockNumber(timeoutCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

// Close closes the primary and all backup clients.
func (mc *MultiClient) Close() {
	for _, c := range mc.clients() {
		if c != nil {
			c.Close()
		}
	}
}

// query runs fn through retryWithBackups and returns its result.
func query[T any](ctx context.Context, mc *MultiClient, opName string, fn func(context.Context, *ethclient.Client) (T, error)) (T, error) {
	var out T
	err := mc.retryWithBackups(ctx, opName, func(ctx context.Context, client *ethclient.Client) error {
		var err error
		out, err = fn(ctx, client)

		return err
	})

	return out, err
}

func (mc *MultiClient) ChainID(ctx context.Context) (*big.Int, error) {
	return query(ctx, mc, "ChainID", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.ChainID(ctx)
	})
}

func (mc *MultiClient) BlockNumber(ctx context.Context) (uint64, error) {
	return query(ctx, mc, "BlockNumber", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.BlockNumber(ctx)
	})
}

func (mc *MultiClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return mc.retryWithBackups(ctx, "SendTransaction", func(ctx context.Context, c *ethclient.Client) error {
		return c.SendTransaction(ctx, tx)
	})
}

// TransactionReceipt returns the receipt of txHash from the first client that has it. A client
// answering ethereum.NotFound is not retried, so the caller sees NotFound once every client has
// been asked.
func (mc *MultiClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return query(ctx, mc, "TransactionReceipt", func(ctx context.Context, c *ethclient.Client) (*types.Receipt, error) {
		return c.TransactionReceipt(ctx, txHash)
	})
}

func (mc *MultiClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return query(ctx, mc, "CallContract", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CallContract(ctx, msg, blockNumber)
	})
}

func (mc *MultiClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return query(ctx, mc, "CodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.CodeAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return query(ctx, mc, "PendingCodeAt", func(ctx context.Context, c *ethclient.Client) ([]byte, error) {
		return c.PendingCodeAt(ctx, account)
	})
}

func (mc *MultiClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	return query(ctx, mc, "NonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.NonceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return query(ctx, mc, "PendingNonceAt", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.PendingNonceAt(ctx, account)
	})
}

func (mc *MultiClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return query(ctx, mc, "BalanceAt", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.BalanceAt(ctx, account, blockNumber)
	})
}

func (mc *MultiClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return query(ctx, mc, "HeaderByNumber", func(ctx context.Context, c *ethclient.Client) (*types.Header, error) {
		return c.HeaderByNumber(ctx, number)
	})
}

func (mc *MultiClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return query(ctx, mc, "SuggestGasPrice", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasPrice(ctx)
	})
}

func (mc *MultiClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return query(ctx, mc, "SuggestGasTipCap", func(ctx context.Context, c *ethclient.Client) (*big.Int, error) {
		return c.SuggestGasTipCap(ctx)
	})
}

func (mc *MultiClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return query(ctx, mc, "EstimateGas", func(ctx context.Context, c *ethclient.Client) (uint64, error) {
		return c.EstimateGas(ctx, call)
	})
}

func (mc *MultiClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return query(ctx, mc, "FilterLogs", func(ctx context.Context, c *ethclient.Client) ([]types.Log, error) {
		return c.FilterLogs(ctx, q)
	})
}

// SubscribeFilterLogs subscribes on the current primary only. The subscription outlives the
// per-call timeout, so it is not routed through retryWithBackups.
func (mc *MultiClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return mc.clients()[0].SubscribeFilterLogs(ctx, q, ch)
}

func (mc *MultiClient) retryWithBackups(ctx context.Context, opName string, op func(context.Context, *ethclient.Client) error) error {
	var err error
	traceID := uuid.New()

	for rpcIndex, client := range mc.clients() {
		attempts := 0
		err2 := retry.Do(func() error {
			attempts++
			timeoutCtx, cancel := ensureTimeout(ctx, mc.RetryConfig.Timeout)
			defer cancel()

			err = op(timeoutCtx, client)
			if errors.Is(err, ethereum.NotFound) {
				return retry.Unrecoverable(err)
			}
			if err != nil {
				mc.lggr.Warnw("RPC call failed",
					"traceID", traceID.String(), "chain", mc.chainName, "op", opName, "index", rpcIndex,
					"attempt", attempts, "err", maybeDataErr(err))

				return err
			}

			mc.reorderRPCs(client)

			return nil
		}, retry.Attempts(mc.RetryConfig.Attempts), retry.Delay(mc.RetryConfig.Delay), retry.Context(ctx))
		if err2 == nil {
			if attempts > 1 {
				mc.lggr.Infow("RPC call succeeded after retries",
					"traceID", traceID.String(), "chain", mc.chainName, "op", opName, "index", rpcIndex,
					"attempts", attempts)
			}

			return nil
		}
		if ctx.Err() != nil {
			break
		}
		mc.lggr.Debugw("Trying next RPC client",
			"traceID", traceID.String(), "chain", mc.chainName, "op", opName, "failedIndex", rpcIndex)
	}

	return errors.Join(err, fmt.Errorf("all backup clients failed for chain %q", mc.chainName))
}

// dialWithRetry dials the preferred endpoint of r, retrying per the dial settings of
// RetryConfig.
func (mc *MultiClient) dialWithRetry(r RPC) (*ethclient.Client, error) {
	endpoint, err := r.ToEndpoint()
	if err != nil {
		return nil, err
	}

	var (
		client   *ethclient.Client
		attempts int
	)
	err = retry.Do(func() error {
		attempts++
		ctx, cancel := context.WithTimeout(context.Background(), mc.RetryConfig.DialTimeout)
		defer cancel()

		mc.lggr.Debugw("Dialing RPC", "chain", mc.chainName, "rpc", r.Name, "attempt", attempts)

		var derr error
		client, derr = ethclient.DialContext(ctx, endpoint)
		if derr != nil {
			mc.lggr.Warnw("Dialing RPC failed", "chain", mc.chainName, "rpc", r.Name, "attempt", attempts, "err", derr)
		}

		return derr
	}, retry.Attempts(mc.RetryConfig.DialAttempts), retry.Delay(mc.RetryConfig.DialDelay))
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s for chain %s after %d attempts: %w", r.Name, mc.chainName, attempts, err)
	}

	return client, nil
}

// ensureTimeout derives a cancelable context from parent, adding timeout only when parent has no
// deadline of its own.
func ensureTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := parent.Deadline(); hasDeadline {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, timeout)
}

// reorderRPCs promotes winner to primary. Clients that were ahead of it in the rotation move to
// the end of the backup list, keeping their relative order.
func (mc *MultiClient) reorderRPCs(winner *ethclient.Client) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if winner == mc.primary {
		return
	}

	rotation := append([]*ethclient.Client{mc.primary}, mc.backups...)
	idx := slices.Index(rotation, winner)
	if idx < 0 {
		return
	}

	mc.primary = winner
	mc.backups = append(slices.Clone(rotation[idx+1:]), rotation[:idx]...)
}

// clients returns a snapshot of the rotation, primary first.
func (mc *MultiClient) clients() []*ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]*ethclient.Client{mc.primary}, mc.backups...)
}

func maybeDataErr(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}
