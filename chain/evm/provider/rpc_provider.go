package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/scholardao/scholardao-deployer/chain/evm"
	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

// ChainProvider builds a ready to use evm.Chain.
type ChainProvider interface {
	Initialize(ctx context.Context) (evm.Chain, error)
	Name() string
}

var _ ChainProvider = (*RPCChainProvider)(nil)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: ChainID is the EIP-155 chain ID the network is expected to report. Initialize
	// fails if the RPC reports a different one.
	ChainID uint64
	// Optional: NetworkName is a human readable network name used in logs and errors.
	NetworkName string
	// Required: A generator for the deployer key. Use TransactorFromRaw, TransactorFromMnemonic
	// or TransactorFromKMS.
	DeployerSigner SignerGenerator
	// Required: At least one RPC must be provided to connect to the EVM node.
	RPCs []evm.RPC
	// Required: ConfirmFunctor is a type that generates a confirmation function for transactions.
	// If in doubt, use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: ClientOpts are applied to the MultiClient, e.g. evm.WithRetry.
	ClientOpts []func(client *evm.MultiClient)
	// Optional: Logger is the logger to use for the RPCChainProvider. If not provided, a default
	// logger will be used.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.ChainID == 0 {
		return errors.New("chain ID is required")
	}
	if c.DeployerSigner == nil {
		return errors.New("deployer signer generator is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return nil
}

// RPCChainProvider is a chain provider that provides a chain that connects to an EVM node via RPC.
type RPCChainProvider struct {
	config RPCChainProviderConfig

	client *evm.MultiClient
	chain  *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider with the given configuration.
func NewRPCChainProvider(config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{
		config: config,
	}
}

// Initialize dials the configured RPCs, checks that they serve the expected chain and returns an
// evm.Chain ready for deployments.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	chainID := new(big.Int).SetUint64(p.config.ChainID)
	name := p.config.NetworkName
	if name == "" {
		name = evm.ChainName(p.config.ChainID)
	}
	lggr := p.config.Logger.Named("rpc")

	deployerKey, err := p.config.DeployerSigner.Generate(ctx, chainID)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
	}
	signerAddr, err := p.config.DeployerSigner.Address(ctx)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to get deployer address: %w", err)
	}
	if signerAddr != deployerKey.From {
		return evm.Chain{}, fmt.Errorf("deployer address mismatch: signer reports %s, transactor signs as %s",
			signerAddr, deployerKey.From,
		)
	}

	client, err := evm.NewMultiClient(lggr, evm.RPCConfig{
		ChainName: name,
		RPCs:      p.config.RPCs,
	}, p.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to create multi-client: %w", err)
	}

	reported, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to get chain ID from RPC for network %s: %w", name, err)
	}
	if reported.Cmp(chainID) != 0 {
		client.Close()
		return evm.Chain{}, fmt.Errorf("chain ID mismatch for network %s: configured %s, RPC reports %s",
			name, chainID, reported,
		)
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(name, client, deployerKey.From)
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	lggr.Debugw("Connected to network", "network", name, "chainID", chainID, "deployer", deployerKey.From)

	p.client = client
	p.chain = &evm.Chain{
		ChainID:     chainID,
		Selector:    evm.SelectorFromChainID(p.config.ChainID),
		NetworkName: p.config.NetworkName,
		Client:      client,
		DeployerKey: deployerKey,
		Confirm:     confirmFunc,
	}

	return *p.chain, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

// Close closes the RPC connections opened by Initialize.
func (p *RPCChainProvider) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
