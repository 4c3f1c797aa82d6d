package deployer

import (
	"github.com/Masterminds/semver/v3"

	"github.com/scholardao/scholardao-deployer/artifact"
	"github.com/scholardao/scholardao-deployer/chain/evm"
	"github.com/scholardao/scholardao-deployer/operations"
)

// Deps are the dependencies of DeployContractOp.
type Deps struct {
	Chain       evm.Chain
	Registry    artifact.Registry
	Gas         GasSettings
	ExplorerURL string
}

// DeployContractOp deploys one contract per execution.
var DeployContractOp = operations.NewOperation(
	"deploy-contract",
	semver.MustParse("1.0.0"),
	"Deploys a contract from its compiled artifact without constructor arguments",
	func(b operations.Bundle, deps Deps, input Request) (Result, error) {
		return Deploy(b.GetContext(), deps.Chain, deps.Registry, input,
			WithLogger(b.Logger),
			WithGas(deps.Gas),
			WithExplorerURL(deps.ExplorerURL),
		)
	},
)
