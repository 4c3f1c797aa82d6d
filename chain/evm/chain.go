package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc waits for a transaction to reach the configured confirmation depth and returns its
// receipt. A receipt with a failed status is reported as a *RevertError.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
}

// Chain represents a connected EVM network together with the key used to deploy to it.
type Chain struct {
	// ChainID is the EIP-155 chain ID the deployer key signs for.
	ChainID *big.Int
	// Selector is the chain-selectors identifier of the chain. It is zero when the chain is not
	// registered in the chain-selectors registry.
	Selector uint64
	// NetworkName is the name the network was configured with, e.g. "opencampus".
	NetworkName string

	Client OnchainClient
	// Note the Sign function can be abstract supporting a variety of key storage mechanisms (e.g. KMS etc).
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
}

// Name returns the configured network name, falling back to the chain-selectors name.
func (c Chain) Name() string {
	if c.NetworkName != "" {
		return c.NetworkName
	}

	return ChainName(c.chainIDUint64())
}

// String returns "<name> (<chain id>)".
func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Name(), c.chainIDUint64())
}

// Deployer returns the address of the deployer key, or the zero address when no key is set.
func (c Chain) Deployer() common.Address {
	if c.DeployerKey == nil {
		return common.Address{}
	}

	return c.DeployerKey.From
}

func (c Chain) chainIDUint64() uint64 {
	if c.ChainID == nil {
		return 0
	}

	return c.ChainID.Uint64()
}

// SelectorFromChainID returns the chain selector registered for an EVM chain ID, or zero if the
// chain is unknown to the chain-selectors registry.
func SelectorFromChainID(chainID uint64) uint64 {
	selector, err := chainsel.SelectorFromChainId(chainID)
	if err != nil {
		return 0
	}

	return selector
}

// ChainName returns the chain-selectors name of an EVM chain ID, or "evm-<id>" if unknown.
func ChainName(chainID uint64) string {
	name, err := chainsel.NameFromChainId(chainID)
	if err != nil || name == "" {
		return fmt.Sprintf("evm-%d", chainID)
	}

	return name
}
