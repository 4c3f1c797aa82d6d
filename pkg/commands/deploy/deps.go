// Package deploy provides the CLI command which deploys the SimpleScholarDAO contract.
package deploy

import (
	"context"

	"github.com/scholardao/scholardao-deployer/artifact"
	"github.com/scholardao/scholardao-deployer/chain/evm"
	"github.com/scholardao/scholardao-deployer/chain/evm/provider"
	"github.com/scholardao/scholardao-deployer/config"
	"github.com/scholardao/scholardao-deployer/config/network"
	"github.com/scholardao/scholardao-deployer/pkg/logger"
)

// EnvLoaderFunc loads a dotenv file into the process environment. An empty path loads the
// default file if present.
type EnvLoaderFunc func(path string) error

// ConfigLoaderFunc loads the deployer configuration from a file path and the environment.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// NetworksLoaderFunc loads the network manifest, merging the given files over the built-in
// networks.
type NetworksLoaderFunc func(paths []string) (*network.Config, error)

// ChainLoaderFunc connects to the selected network and returns a chain ready to deploy to, along
// with a function releasing its connections.
type ChainLoaderFunc func(
	ctx context.Context, lggr logger.Logger, cfg *config.Config, net network.Network,
) (evm.Chain, func(), error)

// RegistryLoaderFunc returns the artifact registry for a project directory.
type RegistryLoaderFunc func(projectDir string) (artifact.Registry, error)

// defaultNetworksLoader expands ${VAR} references in RPC URLs.
func defaultNetworksLoader(paths []string) (*network.Config, error) {
	return network.Load(paths,
		network.WithHTTPURLTransformer(network.ExpandEnv),
		network.WithWSURLTransformer(network.ExpandEnv),
	)
}

// defaultChainLoader connects through the RPC chain provider using the configured signer and
// confirmation policy.
func defaultChainLoader(
	ctx context.Context, lggr logger.Logger, cfg *config.Config, net network.Network,
) (evm.Chain, func(), error) {
	signer, err := cfg.SignerGenerator()
	if err != nil {
		return evm.Chain{}, nil, err
	}

	p := provider.NewRPCChainProvider(provider.RPCChainProviderConfig{
		ChainID:        net.ChainID,
		NetworkName:    net.Name,
		DeployerSigner: signer,
		RPCs:           net.EVMRPCs(),
		ConfirmFunctor: provider.ConfirmFuncGeth(cfg.Confirmation.Timeout,
			provider.WithTickInterval(cfg.Confirmation.PollInterval),
			provider.WithConfirmations(cfg.Confirmation.Confirmations),
		),
		ClientOpts: []func(*evm.MultiClient){
			evm.WithRetry(cfg.RPC.RetryAttempts, cfg.RPC.RetryDelay),
		},
		Logger: lggr,
	})

	chain, err := p.Initialize(ctx)
	if err != nil {
		p.Close()

		return evm.Chain{}, nil, err
	}

	if selector, ok := net.Selector(); ok {
		chain.Selector = selector
	}

	return chain, p.Close, nil
}

// defaultRegistryLoader detects a Hardhat or Foundry layout. An empty directory means the working
// directory.
func defaultRegistryLoader(projectDir string) (artifact.Registry, error) {
	if projectDir == "" {
		projectDir = "."
	}

	return artifact.Detect(projectDir)
}

// Deps holds the injectable dependencies for the deploy command.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// EnvLoader loads the dotenv file.
	// Default: config.LoadDotEnv
	EnvLoader EnvLoaderFunc

	// ConfigLoader loads the deployer configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// NetworksLoader loads the network manifest.
	// Default: network.Load with ${VAR} expansion of RPC URLs
	NetworksLoader NetworksLoaderFunc

	// ChainLoader connects to the selected network.
	// Default: provider.RPCChainProvider
	ChainLoader ChainLoaderFunc

	// RegistryLoader builds the artifact registry.
	// Default: artifact.Detect
	RegistryLoader RegistryLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.EnvLoader == nil {
		d.EnvLoader = config.LoadDotEnv
	}
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.NetworksLoader == nil {
		d.NetworksLoader = defaultNetworksLoader
	}
	if d.ChainLoader == nil {
		d.ChainLoader = defaultChainLoader
	}
	if d.RegistryLoader == nil {
		d.RegistryLoader = defaultRegistryLoader
	}
}
