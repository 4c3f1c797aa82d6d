package provider

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"
)

// SimClient is a wrapper struct around a simulated backend which implements OnchainClient but
// also exposes backend methods.
type SimClient struct {
	mu sync.Mutex

	simulated.Client
	sim *simulated.Backend
}

// NewSimClient wraps a simulated backend.
func NewSimClient(t *testing.T, sim *simulated.Backend) *SimClient {
	t.Helper()

	require.NotNil(t, sim, "simulated backend must not be nil")

	return &SimClient{
		sim:    sim,
		Client: sim.Client(),
	}
}

// Commit seals a new block with the pending transactions.
func (b *SimClient) Commit() common.Hash {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sim.Commit()
}

// CommitN seals n blocks and returns the hash of the last one.
func (b *SimClient) CommitN(n uint64) common.Hash {
	b.mu.Lock()
	defer b.mu.Unlock()

	var h common.Hash
	for range n {
		h = b.sim.Commit()
	}

	return h
}
