package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/scholardao/scholardao-deployer/chain/evm"
)

// ConfirmFunctor is an interface for creating a confirmation function for transactions on the
// EVM chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions sent by from on the named chain.
	Generate(chainName string, client evm.OnchainClient, from common.Address) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the node for receipts using the geth
// client. waitMinedTimeout bounds the total time spent waiting for one transaction, including
// the time spent waiting for additional confirmations.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     1 * time.Second, // the same value we have in bind.WaitMined hardcoded in "go-ethereum"
		waitMinedTimeout: waitMinedTimeout,
		confirmations:    1,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

// WithTickInterval sets how often the node is polled for receipts and new heads.
func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		if interval > 0 {
			o.tickInterval = interval
		}
	}
}

// WithConfirmations sets the number of blocks, counting the inclusion block, that must exist
// before a transaction is considered final. Values below 1 are treated as 1.
func WithConfirmations(n uint64) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.confirmations = max(n, 1)
	}
}

// confirmFuncGeth implements the ConfirmFunctor interface which generates a confirmation function
// for transactions using the Geth client.
type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
	confirmations    uint64
}

// Generate returns a function that confirms transactions using the Geth client.
func (g *confirmFuncGeth) Generate(
	chainName string, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}

	return func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
		if tx == nil {
			return nil, fmt.Errorf("%w for chain %s", evm.ErrTxNil, chainName)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := g.waitFinal(ctxTimeout, client, tx.Hash())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("tx %s on chain %s after %s: %w: %w",
					tx.Hash().Hex(), chainName, g.waitMinedTimeout, evm.ErrConfirmTimeout, err,
				)
			}

			return nil, fmt.Errorf("tx %s failed to confirm on chain %s: %w",
				tx.Hash().Hex(), chainName, err,
			)
		}

		if receipt.Status == types.ReceiptStatusFailed {
			reason, rerr := getErrorReasonFromTx(ctxTimeout, client, from, tx, receipt)
			if rerr != nil {
				reason = ""
			}

			return receipt, &evm.RevertError{
				TxHash:      tx.Hash(),
				BlockNumber: receipt.BlockNumber.Uint64(),
				Reason:      reason,
			}
		}

		return receipt, nil
	}, nil
}

// waitFinal waits for the transaction to be mined and then for the configured confirmation
// depth. If the inclusion block is reorged out while waiting, it starts over.
func (g *confirmFuncGeth) waitFinal(
	ctx context.Context, client evm.OnchainClient, txHash common.Hash,
) (*types.Receipt, error) {
	for {
		receipt, err := WaitMinedWithInterval(ctx, g.tickInterval, client, txHash)
		if err != nil {
			return nil, err
		}
		if receipt.Status == types.ReceiptStatusFailed || g.confirmations <= 1 {
			return receipt, nil
		}

		final, err := g.waitConfirmations(ctx, client, receipt)
		if err != nil {
			return nil, err
		}
		if final != nil {
			return final, nil
		}
	}
}

// waitConfirmations polls the chain head until receipt is buried under the configured number of
// blocks. It returns a nil receipt when the transaction is no longer in the block it was first
// seen in.
func (g *confirmFuncGeth) waitConfirmations(
	ctx context.Context, client evm.OnchainClient, receipt *types.Receipt,
) (*types.Receipt, error) {
	target := receipt.BlockNumber.Uint64() + g.confirmations - 1

	ticker := time.NewTicker(g.tickInterval)
	defer ticker.Stop()

	for {
		head, err := client.HeaderByNumber(ctx, nil)
		if err == nil && head.Number.Uint64() >= target {
			current, rerr := client.TransactionReceipt(ctx, receipt.TxHash)
			switch {
			case errors.Is(rerr, ethereum.NotFound):
				return nil, nil
			case rerr == nil && current.BlockHash != receipt.BlockHash:
				return nil, nil
			case rerr == nil:
				return current, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitMinedWithInterval is a custom function that allows to get receipts faster for networks with instant blocks
func WaitMinedWithInterval(ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash) (*types.Receipt, error) {
	queryTicker := time.NewTicker(tick)
	defer queryTicker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-queryTicker.C:
		}
	}
}
