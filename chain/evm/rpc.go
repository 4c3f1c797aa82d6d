package evm

import (
	"errors"
	"strings"
)

// URLScheme is the transport used to reach an RPC node.
type URLScheme string

const (
	URLSchemeHTTP URLScheme = "http"
	URLSchemeWS   URLScheme = "ws"
)

// RPC is a single RPC endpoint of a network.
type RPC struct {
	Name               string
	WSURL              string
	HTTPURL            string
	PreferredURLScheme URLScheme
}

// ToEndpoint returns the URL for the preferred scheme. HTTP is preferred when no scheme is set.
func (r RPC) ToEndpoint() (string, error) {
	switch strings.ToLower(string(r.PreferredURLScheme)) {
	case string(URLSchemeWS):
		if r.WSURL == "" {
			return "", errors.New("ws url is required when the preferred url scheme is ws")
		}

		return r.WSURL, nil
	case "", string(URLSchemeHTTP):
		if r.HTTPURL == "" {
			return "", errors.New("http url is required when the preferred url scheme is http")
		}

		return r.HTTPURL, nil
	default:
		return "", errors.New("unknown url scheme " + string(r.PreferredURLScheme))
	}
}

// RPCConfig is the set of endpoints a MultiClient dials for one chain.
type RPCConfig struct {
	// ChainName labels log lines and errors.
	ChainName string
	RPCs      []RPC
}
