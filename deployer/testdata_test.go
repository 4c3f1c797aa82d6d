package deployer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/scholardao/scholardao-deployer/artifact"
	"github.com/scholardao/scholardao-deployer/chain/evm"
	"github.com/scholardao/scholardao-deployer/chain/evm/provider"
)

const scholarDAOABI = `[
	{"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[],"name":"admin","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const tokenABI = `[
	{"inputs":[{"internalType":"uint256","name":"supply","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"}
]`

var (
	// deployCode deploys a 10 byte runtime which returns 1.
	deployCode = hexutil.MustDecode("0x600a600c600039600a6000f3600160005260206000f3")
	// revertCode reverts during construction.
	revertCode = hexutil.MustDecode("0x60006000fd")
	// emptyRuntimeCode succeeds but leaves no code behind.
	emptyRuntimeCode = hexutil.MustDecode("0x60006000f3")
)

// memRegistry is an in-memory artifact.Registry.
type memRegistry map[string]*artifact.Artifact

func (r memRegistry) Resolve(name string) (*artifact.Artifact, error) {
	a, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", artifact.ErrArtifactNotFound, name)
	}

	return a, nil
}

func newArtifact(t *testing.T, name, abiJSON string, code []byte) *artifact.Artifact {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	require.NoError(t, err)

	return &artifact.Artifact{
		ContractName: name,
		SourceName:   "contracts/" + name + ".sol",
		ABI:          parsed,
		Bytecode:     code,
		Format:       artifact.FormatHardhat,
	}
}

func newTestRegistry(t *testing.T) memRegistry {
	t.Helper()

	return memRegistry{
		"SimpleScholarDAO": newArtifact(t, "SimpleScholarDAO", scholarDAOABI, deployCode),
		"Token":            newArtifact(t, "Token", tokenABI, deployCode),
		"Reverter":         newArtifact(t, "Reverter", scholarDAOABI, revertCode),
		"Empty":            newArtifact(t, "Empty", scholarDAOABI, emptyRuntimeCode),
	}
}

func newSimChain(t *testing.T) (evm.Chain, *provider.SimChainProvider) {
	t.Helper()

	p := provider.NewSimChainProvider(t, provider.SimChainProviderConfig{NetworkName: "localsim"})
	chain, err := p.Initialize(context.Background())
	require.NoError(t, err)

	return chain, p
}
