package network

import (
	"errors"
	"fmt"

	"github.com/scholardao/scholardao-deployer/chain/evm"
)

// NetworkType represents the type of network.
type NetworkType string

const (
	NetworkTypeMainnet NetworkType = "mainnet"
	NetworkTypeTestnet NetworkType = "testnet"
	NetworkTypeDevnet  NetworkType = "devnet"
)

// Network represents a network configuration.
type Network struct {
	Name          string        `yaml:"name"`
	DisplayName   string        `yaml:"display_name,omitempty"`
	Type          NetworkType   `yaml:"type"`
	ChainID       uint64        `yaml:"chain_id"`
	ChainSelector uint64        `yaml:"chain_selector,omitempty"`
	BlockExplorer BlockExplorer `yaml:"block_explorer,omitempty"`
	RPCs          []RPC         `yaml:"rpcs"`
}

// Title returns the display name of the network, falling back to its name.
func (n *Network) Title() string {
	if n.DisplayName != "" {
		return n.DisplayName
	}

	return n.Name
}

// Selector returns the chain selector of the network. An explicit chain_selector takes precedence
// over the one derived from the chain ID.
func (n *Network) Selector() (uint64, bool) {
	if n.ChainSelector != 0 {
		return n.ChainSelector, true
	}

	selector := evm.SelectorFromChainID(n.ChainID)

	return selector, selector != 0
}

// ChainName returns the canonical chain-selectors name for the network's chain ID.
func (n *Network) ChainName() string {
	return evm.ChainName(n.ChainID)
}

// EVMRPCs converts the network's RPCs into MultiClient endpoints.
func (n *Network) EVMRPCs() []evm.RPC {
	rpcs := make([]evm.RPC, 0, len(n.RPCs))
	for _, rpc := range n.RPCs {
		scheme := evm.URLSchemeHTTP
		if rpc.PreferredURLScheme == "ws" {
			scheme = evm.URLSchemeWS
		}

		rpcs = append(rpcs, evm.RPC{
			Name:               rpc.RPCName,
			HTTPURL:            rpc.HTTPURL,
			WSURL:              rpc.WSURL,
			PreferredURLScheme: scheme,
		})
	}

	return rpcs
}

// Validate validates the network configuration to ensure that all required fields are set.
func (n *Network) Validate() error {
	if n.Name == "" {
		return errors.New("name is required")
	}

	if n.Type == "" {
		return errors.New("type is required")
	}

	if n.ChainID == 0 {
		return errors.New("chain ID is required")
	}

	if len(n.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	for i, rpc := range n.RPCs {
		if rpc.PreferredEndpoint() == "" {
			return fmt.Errorf("rpc %d (%s): preferred endpoint is empty", i, rpc.RPCName)
		}
	}

	return nil
}

// RPC represents an RPC configuration in the flattened structure
type RPC struct {
	RPCName            string `yaml:"rpc_name"`
	PreferredURLScheme string `yaml:"preferred_url_scheme"`
	HTTPURL            string `yaml:"http_url"`
	WSURL              string `yaml:"ws_url,omitempty"`
}

// PreferredEndpoint returns the correct endpoint based on the preferred URL scheme. By default, it
// returns the HTTP URL.
func (rpc *RPC) PreferredEndpoint() string {
	if rpc.PreferredURLScheme == "ws" {
		return rpc.WSURL
	}

	return rpc.HTTPURL
}

// BlockExplorer represents a block explorer configuration in the flattened structure
type BlockExplorer struct {
	Type string `yaml:"type,omitempty"`
	URL  string `yaml:"url,omitempty"`
}
