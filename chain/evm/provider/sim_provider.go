package provider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"

	"github.com/scholardao/scholardao-deployer/chain/evm"
)

var (
	// simChainID is the chain ID for the simulated EVM chain. This is always set to 1337 across
	// all instances of EVM Simulated Chains.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is 1,000,000 Ether in wei.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: NetworkName is the name reported by the chain. Defaults to "simulated".
	NetworkName string
	// Optional: DeployerKey is the key of the prefunded deployer account. A random key is used
	// when nil.
	DeployerKey *ecdsa.PrivateKey
	// Optional: Confirmations is the number of blocks committed for every confirmed transaction.
	// Defaults to 1.
	Confirmations uint64
	// Optional: BlockTime configures the time between blocks being committed. By default, this is
	// set to 0s, meaning that blocks are only produced when a transaction is confirmed.
	BlockTime time.Duration
}

var _ ChainProvider = (*SimChainProvider)(nil)

// SimChainProvider manages a simulated EVM chain that is backed by go-ethereum's in memory
// simulated backend.
type SimChainProvider struct {
	t      *testing.T
	config SimChainProviderConfig

	client *SimClient
	chain  *evm.Chain
}

// NewSimChainProvider creates a new SimChainProvider with the given configuration.
func NewSimChainProvider(t *testing.T, config SimChainProviderConfig) *SimChainProvider {
	t.Helper()

	return &SimChainProvider{
		t:      t,
		config: config,
	}
}

// Initialize starts the simulated backend with a prefunded deployer account and returns a chain
// whose Confirm function mines the blocks it waits for.
func (p *SimChainProvider) Initialize(_ context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	key := p.config.DeployerKey
	if key == nil {
		var err error
		if key, err = crypto.GenerateKey(); err != nil {
			return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
		}
	}

	deployerKey, err := bind.NewKeyedTransactorWithChainID(key, simChainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to create deployer transactor: %w", err)
	}

	backend := simulated.NewBackend(types.GenesisAlloc{
		deployerKey.From: {Balance: prefundAmountWei},
	}, simulated.WithBlockGasLimit(50000000))
	backend.Commit() // Commit the genesis block

	if p.config.BlockTime > 0 {
		startAutoMine(p.t, backend, p.config.BlockTime)
	}

	client := NewSimClient(p.t, backend)

	name := p.config.NetworkName
	if name == "" {
		name = "simulated"
	}
	confirmations := max(p.config.Confirmations, 1)

	gethConfirm, err := ConfirmFuncGeth(1*time.Minute,
		WithTickInterval(10*time.Millisecond),
		WithConfirmations(confirmations),
	).Generate(name, client, deployerKey.From)
	if err != nil {
		return evm.Chain{}, err
	}

	p.client = client
	p.chain = &evm.Chain{
		ChainID:     simChainID,
		NetworkName: name,
		Client:      client,
		DeployerKey: deployerKey,
		Confirm: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			if tx != nil {
				client.CommitN(confirmations)
			}

			return gethConfirm(ctx, tx)
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// Client returns the simulated client. You must call Initialize first.
func (p *SimChainProvider) Client() *SimClient {
	return p.client
}

// startAutoMine triggers the simulated backend to create a new block at intervals defined by
// `blockTime`. After the test is done, it stops the mining goroutine.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
